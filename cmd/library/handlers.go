package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"libraryms/pkg/circulation"
	"libraryms/pkg/models"
	"libraryms/pkg/store"

	"github.com/gin-gonic/gin"
)

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type itemRequest struct {
	Kind        models.ItemKind `json:"kind" binding:"required"`
	Title       string          `json:"title" binding:"required"`
	ISBN        string          `json:"isbn"`
	TotalCopies int             `json:"totalCopies"`
	Details     json.RawMessage `json:"details"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// writeError maps engine errors onto status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, circulation.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, circulation.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, circulation.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, circulation.ErrRuleViolation):
		status = http.StatusUnprocessableEntity
	default:
		log.Printf("Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// currentSession resolves the X-User-Name header. It writes the error
// response itself and reports false when there is no usable session.
func currentSession(c *gin.Context) (circulation.Session, bool) {
	username := c.GetHeader("X-User-Name")
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "X-User-Name header is required"})
		return circulation.Session{}, false
	}
	sess, err := svc.SessionFor(c.Request.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return circulation.Session{}, false
	}
	if err != nil {
		writeError(c, err)
		return circulation.Session{}, false
	}
	return sess, true
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func itemResponse(item models.Item) gin.H {
	resp := gin.H{
		"id":              item.ID,
		"kind":            item.Kind,
		"title":           item.Title,
		"isbn":            item.ISBN,
		"totalCopies":     item.TotalCopies,
		"availableCopies": item.AvailableCopies,
		"averageRating":   item.AverageRating,
		"physical":        item.IsPhysical(),
		"details":         item.Details(),
	}
	if item.Reviews != nil {
		resp["reviews"] = item.Reviews
	}
	return resp
}

func (r itemRequest) toItem() (models.Item, error) {
	details, err := models.DecodeDetails(r.Kind, r.Details)
	if err != nil {
		return models.Item{}, errors.Join(store.ErrInvalidArgument, err)
	}
	item := models.Item{Title: r.Title, ISBN: r.ISBN, TotalCopies: r.TotalCopies}
	item.SetDetails(details)
	return item, nil
}

func registerUser(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := svc.RegisterUser(c.Request.Context(), models.User{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.User)
}

func searchItems(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size < 1 || size > 100 {
		size = 10
	}
	kind := models.ItemKind(c.Query("kind"))
	if kind != "" && !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown kind"})
		return
	}
	onlyAvailable := c.DefaultQuery("available", "false") == "true"

	found, err := svc.SearchItems(c.Request.Context(), c.Query("query"), kind, onlyAvailable)
	if err != nil {
		writeError(c, err)
		return
	}

	start := (page - 1) * size
	if start > len(found) {
		start = len(found)
	}
	end := start + size
	if end > len(found) {
		end = len(found)
	}
	items := make([]gin.H, 0, end-start)
	for _, item := range found[start:end] {
		items = append(items, itemResponse(item))
	}
	c.JSON(http.StatusOK, gin.H{
		"page":          page,
		"pageSize":      size,
		"totalElements": len(found),
		"items":         items,
	})
}

func getItem(c *gin.Context) {
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	item, err := svc.GetItem(c.Request.Context(), itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, itemResponse(*item))
}

func createItem(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := req.toItem()
	if err != nil {
		writeError(c, err)
		return
	}
	created, err := svc.AddItem(c.Request.Context(), sess, item)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, itemResponse(*created))
}

func updateItem(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := req.toItem()
	if err != nil {
		writeError(c, err)
		return
	}
	item.ID = itemID
	updated, fulfilled, err := svc.UpdateItem(c.Request.Context(), sess, item)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"item":      itemResponse(*updated),
		"fulfilled": fulfilled,
	})
}

func deleteItem(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	if err := svc.DeleteItem(c.Request.Context(), sess, itemID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func getItemQueue(c *gin.Context) {
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	queue, err := svc.ItemQueue(c.Request.Context(), itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, queue)
}

func outcomeStatus(out circulation.Outcome) int {
	switch out.Kind {
	case circulation.OutcomeLoaned:
		return http.StatusCreated
	case circulation.OutcomeQueued:
		return http.StatusAccepted
	}
	return http.StatusOK
}

func checkoutItem(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	out, err := svc.CheckoutOrReserve(c.Request.Context(), sess, itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(outcomeStatus(out), out)
}

func reserveItem(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	out, err := svc.Reserve(c.Request.Context(), sess, itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(outcomeStatus(out), out)
}

func addReview(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	review, err := svc.AddReview(c.Request.Context(), sess, itemID, req.Rating, req.Comment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func getMyLoans(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	loans, err := svc.UserLoans(c.Request.Context(), sess, c.Query("active") == "true")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

func getMyReservations(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	reservations, err := svc.UserReservations(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservations)
}

func getMyFines(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	fines, err := svc.UserFines(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fines)
}

func returnLoan(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	loanID, ok := idParam(c, "loanId")
	if !ok {
		return
	}
	res, err := svc.ReturnLoan(c.Request.Context(), sess, loanID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func cancelReservation(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	reservationID, ok := idParam(c, "reservationId")
	if !ok {
		return
	}
	if err := svc.CancelReservation(c.Request.Context(), sess, reservationID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func scanFines(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	if !sess.IsAdmin() {
		writeError(c, circulation.ErrForbidden)
		return
	}
	report, err := svc.GenerateOrUpdateFines(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func payFine(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	fineID, ok := idParam(c, "fineId")
	if !ok {
		return
	}
	request, err := svc.RequestFinePayment(c.Request.Context(), sess, fineID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, request)
}

func getFineRequests(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	requests, err := svc.PendingPayRequests(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func approveFineRequest(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	requestID, ok := idParam(c, "requestId")
	if !ok {
		return
	}
	fine, err := svc.ApproveFinePayment(c.Request.Context(), sess, requestID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fine)
}

func rejectFineRequest(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	requestID, ok := idParam(c, "requestId")
	if !ok {
		return
	}
	fine, err := svc.RejectFinePayment(c.Request.Context(), sess, requestID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fine)
}

func healthCheck(ctx *gin.Context) {
	sqlDB, err := svc.DB().DB()
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database connection failed",
			"error":   err.Error(),
		})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database ping failed",
			"error":   err.Error(),
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "UP"})
}
