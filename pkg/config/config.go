package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Etcd    EtcdConfig    `mapstructure:"etcd"`
	Redis   RedisConfig   `mapstructure:"redis"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Pricing PricingConfig `mapstructure:"pricing"`
	Auction AuctionConfig `mapstructure:"auction"`
	Review  ReviewConfig  `mapstructure:"review"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type MongoDBConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// PricingConfig holds the order cost parameters: tax applies to the
// subtotal, the processing fee is a flat amount added per order.
type PricingConfig struct {
	TaxRate       float64 `mapstructure:"tax_rate"`
	ProcessingFee float64 `mapstructure:"processing_fee"`
}

type AuctionConfig struct {
	MinIncrement         float64 `mapstructure:"min_increment"`
	DefaultDurationHours int     `mapstructure:"default_duration_hours"`
	MaxDurationHours     int     `mapstructure:"max_duration_hours"`
}

type ReviewConfig struct {
	// AutoApprove skips the moderation queue and publishes reviews on
	// submission. Off by default: new reviews stay pending.
	AutoApprove bool `mapstructure:"auto_approve"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("pricing.tax_rate", 0.0825)
	v.SetDefault("pricing.processing_fee", 4.99)
	v.SetDefault("auction.min_increment", 1.0)
	v.SetDefault("auction.default_duration_hours", 72)
	v.SetDefault("auction.max_duration_hours", 720)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}
