package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/bidshop/pkg/service"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (g *Gateway) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := g.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (g *Gateway) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, user, err := g.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (g *Gateway) profile(c *gin.Context) {
	user, err := g.auth.Profile(c.Request.Context(), callerFrom(c).ID)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Catalog

func (g *Gateway) listProducts(c *gin.Context) {
	products, err := g.catalog.ListProducts(c.Request.Context(), c.Query("category"), false)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

func (g *Gateway) getProduct(c *gin.Context) {
	detail, err := g.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (g *Gateway) adminListProducts(c *gin.Context) {
	products, err := g.catalog.ListProducts(c.Request.Context(), c.Query("category"), true)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

type productRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock" binding:"gte=0"`
}

func (r productRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Image:       r.Image,
		Category:    r.Category,
		Stock:       r.Stock,
	}
}

func (g *Gateway) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	product, err := g.catalog.CreateProduct(c.Request.Context(), callerFrom(c), req.input())
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (g *Gateway) updateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	product, err := g.catalog.UpdateProduct(c.Request.Context(), callerFrom(c), c.Param("id"), req.input())
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (g *Gateway) disableProduct(c *gin.Context) {
	if err := g.catalog.DisableProduct(c.Request.Context(), callerFrom(c), c.Param("id")); err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Orders

type orderItemRequest struct {
	ProductID       string  `json:"product_id" binding:"required"`
	Quantity        int     `json:"quantity" binding:"required"`
	PriceAtPurchase float64 `json:"price_at_purchase" binding:"required"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items"`
	ShippingAddress string             `json:"shipping_address"`
}

func (g *Gateway) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	items := make([]service.OrderItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.OrderItemInput{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		}
	}
	order, err := g.orders.Create(c.Request.Context(), callerFrom(c), items, req.ShippingAddress)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (g *Gateway) listOrders(c *gin.Context) {
	orders, err := g.orders.List(c.Request.Context(), callerFrom(c))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}

func (g *Gateway) getOrder(c *gin.Context) {
	order, err := g.orders.Get(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := g.orders.UpdateStatus(c.Request.Context(), callerFrom(c), c.Param("id"), req.Status)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) orderStats(c *gin.Context) {
	stats, err := g.orders.Stats(c.Request.Context())
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// entityAuditLogs returns the audit trail for one entity (order, auction,
// product or review), newest first.
func (g *Gateway) entityAuditLogs(c *gin.Context) {
	if g.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit log not configured"})
		return
	}
	logs, err := g.audit.GetAuditLogs(c.Request.Context(), c.Param("id"), 100)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": len(logs)})
}

// Auctions

type auctionRequest struct {
	Title         string  `json:"title" binding:"required"`
	Description   string  `json:"description"`
	Image         string  `json:"image"`
	Category      string  `json:"category"`
	StartingPrice float64 `json:"starting_price" binding:"required,gt=0"`
	DurationHours int     `json:"duration_hours"`
}

func (g *Gateway) createAuction(c *gin.Context) {
	var req auctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	auction, err := g.auctions.Create(c.Request.Context(), callerFrom(c), service.AuctionInput{
		Title:         req.Title,
		Description:   req.Description,
		Image:         req.Image,
		Category:      req.Category,
		StartingPrice: req.StartingPrice,
		DurationHours: req.DurationHours,
	})
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, auction)
}

func (g *Gateway) getAuction(c *gin.Context) {
	detail, err := g.auctions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type bidRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

func (g *Gateway) placeBid(c *gin.Context) {
	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bid, err := g.auctions.PlaceBid(c.Request.Context(), callerFrom(c), c.Param("id"), req.Amount)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bid)
}

func (g *Gateway) cancelAuction(c *gin.Context) {
	auction, err := g.auctions.Cancel(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, auction)
}

func (g *Gateway) listActiveAuctions(c *gin.Context) {
	auctions, err := g.auctions.ListActive(c.Request.Context())
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auctions": auctions, "total": len(auctions)})
}

func (g *Gateway) listAllAuctions(c *gin.Context) {
	auctions, err := g.auctions.ListAll(c.Request.Context())
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auctions": auctions, "total": len(auctions)})
}

func (g *Gateway) listMyAuctions(c *gin.Context) {
	auctions, err := g.auctions.ListBySeller(c.Request.Context(), callerFrom(c).ID)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auctions": auctions, "total": len(auctions)})
}

func (g *Gateway) listBiddingAuctions(c *gin.Context) {
	auctions, err := g.auctions.ListByBidder(c.Request.Context(), callerFrom(c).ID)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auctions": auctions, "total": len(auctions)})
}

// Reviews

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Title   string `json:"title"`
	Comment string `json:"comment"`
}

func (g *Gateway) submitReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	review, err := g.reviews.Submit(c.Request.Context(), callerFrom(c), c.Param("id"),
		req.Rating, req.Title, req.Comment)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (g *Gateway) listProductReviews(c *gin.Context) {
	productID := c.Param("id")
	reviews, err := g.reviews.ListApproved(c.Request.Context(), productID)
	if err != nil {
		g.writeError(c, err)
		return
	}
	rating, err := g.reviews.AverageRating(c.Request.Context(), productID)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"total":   len(reviews),
		"rating":  rating,
	})
}

func (g *Gateway) adminListProductReviews(c *gin.Context) {
	reviews, err := g.reviews.ListAll(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "total": len(reviews)})
}

func (g *Gateway) listPendingReviews(c *gin.Context) {
	reviews, err := g.reviews.ListPending(c.Request.Context())
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "total": len(reviews)})
}

func (g *Gateway) setReviewStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	review, err := g.reviews.SetStatus(c.Request.Context(), callerFrom(c), c.Param("id"), req.Status)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

func (g *Gateway) markHelpful(c *gin.Context) {
	if err := g.reviews.MarkHelpful(c.Request.Context(), c.Param("id")); err != nil {
		g.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (g *Gateway) hasReviewed(c *gin.Context) {
	reviewed, err := g.reviews.HasReviewed(c.Request.Context(), c.Param("id"), callerFrom(c).ID)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviewed": reviewed})
}
