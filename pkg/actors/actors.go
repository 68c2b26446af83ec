// Package actors hosts the post-commit event pipeline. Engines publish an
// event after the database transaction commits; the audit actor persists it
// to the audit log and the notifier actor delivers user-facing notices.
// Processing happens on the actor mailboxes, off the request path.
package actors

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/example/bidshop/pkg/repository"
)

// Events published by the engines.

type OrderPlaced struct {
	OrderID string
	Number  string
	UserID  string
	Total   float64
}

type OrderStatusChanged struct {
	OrderID string
	Status  string
	ActorID string
}

type BidPlaced struct {
	AuctionID    string
	BidID        string
	BidderID     string
	PrevBidderID string // empty when this is the first bid
	Amount       float64
	Title        string
}

type AuctionClosed struct {
	AuctionID  string
	SellerID   string
	Status     string // sold, ended or cancelled
	WinnerID   string
	WinnerName string
	FinalPrice float64
	Title      string
}

type ReviewModerated struct {
	ReviewID  string
	ProductID string
	Status    string
	ActorID   string
}

type ProductChanged struct {
	ProductID string
	Action    string // created, updated, disabled
	ActorID   string
}

// auditActor turns events into audit log entries.
type auditActor struct {
	logger *zap.Logger
	mongo  *repository.MongoRepository
}

func (a *auditActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *OrderPlaced:
		a.write("order_placed", msg.UserID, msg.OrderID,
			bson.M{"number": msg.Number, "total": msg.Total})

	case *OrderStatusChanged:
		a.write("order_status_changed", msg.ActorID, msg.OrderID,
			bson.M{"status": msg.Status})

	case *BidPlaced:
		a.write("bid_placed", msg.BidderID, msg.AuctionID,
			bson.M{"bid_id": msg.BidID, "amount": msg.Amount})

	case *AuctionClosed:
		a.write("auction_closed", msg.SellerID, msg.AuctionID,
			bson.M{"status": msg.Status, "winner_id": msg.WinnerID, "final_price": msg.FinalPrice})

	case *ReviewModerated:
		a.write("review_moderated", msg.ActorID, msg.ReviewID,
			bson.M{"product_id": msg.ProductID, "status": msg.Status})

	case *ProductChanged:
		a.write("product_"+msg.Action, msg.ActorID, msg.ProductID, bson.M{})

	case *actor.Started:
		a.logger.Info("Audit actor started")

	case *actor.Stopped:
		a.logger.Info("Audit actor stopped")
	}
}

func (a *auditActor) write(action, actorID, entityID string, data bson.M) {
	if a.mongo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := a.mongo.CreateAuditLog(ctx, &repository.AuditLog{
		Action:   action,
		ActorID:  actorID,
		EntityID: entityID,
		Data:     data,
	})
	if err != nil {
		a.logger.Warn("Failed to write audit log",
			zap.String("action", action),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

// notifierActor delivers outbid and auction-outcome notices. Delivery here
// is the log line itself; a mail or push sender would hang off this actor.
type notifierActor struct {
	logger *zap.Logger
}

func (n *notifierActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *BidPlaced:
		if msg.PrevBidderID != "" && msg.PrevBidderID != msg.BidderID {
			n.logger.Info("Outbid notification",
				zap.String("recipient", msg.PrevBidderID),
				zap.String("auction", msg.Title),
				zap.Float64("new_price", msg.Amount))
		}

	case *AuctionClosed:
		if msg.WinnerID != "" {
			n.logger.Info("Auction won notification",
				zap.String("recipient", msg.WinnerID),
				zap.String("auction", msg.Title),
				zap.Float64("final_price", msg.FinalPrice))
		}
		n.logger.Info("Auction closed notification",
			zap.String("recipient", msg.SellerID),
			zap.String("auction", msg.Title),
			zap.String("status", msg.Status))

	case *actor.Started:
		n.logger.Info("Notifier actor started")
	}
}

// Bus fans events out to the audit and notifier actors. A nil Bus drops
// everything, which keeps engines usable without the pipeline in tests.
type Bus struct {
	system   *actor.ActorSystem
	audit    *actor.PID
	notifier *actor.PID
}

func NewBus(logger *zap.Logger, mongo *repository.MongoRepository) (*Bus, error) {
	system := actor.NewActorSystem()

	auditProps := actor.PropsFromProducer(func() actor.Actor {
		return &auditActor{logger: logger.Named("audit-actor"), mongo: mongo}
	})
	auditPID, err := system.Root.SpawnNamed(auditProps, "audit")
	if err != nil {
		return nil, err
	}

	notifierProps := actor.PropsFromProducer(func() actor.Actor {
		return &notifierActor{logger: logger.Named("notifier-actor")}
	})
	notifierPID, err := system.Root.SpawnNamed(notifierProps, "notifier")
	if err != nil {
		return nil, err
	}

	return &Bus{system: system, audit: auditPID, notifier: notifierPID}, nil
}

func (b *Bus) Publish(msg interface{}) {
	if b == nil {
		return
	}
	b.system.Root.Send(b.audit, msg)
	b.system.Root.Send(b.notifier, msg)
}

func (b *Bus) Shutdown() {
	if b == nil {
		return
	}
	b.system.Shutdown()
}
