// Package handler exposes the deals module over HTTP.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/domain"
	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/internal/deals/service"
	"agencydesk_backend/internal/deals/transport"
	"agencydesk_backend/platform/httpkit"
	"agencydesk_backend/platform/validator"
)

// RebuildEnqueuer schedules a thread rebuild for one owner. The queue
// serializes rebuilds per owner.
type RebuildEnqueuer interface {
	EnqueueRebuild(ctx context.Context, ownerID uuid.UUID) error
}

// OrchestratorRunner triggers one orchestrator pass.
type OrchestratorRunner interface {
	Run(ctx context.Context) (repository.AgentRun, error)
}

type Handler struct {
	svc          *service.Service
	rebuilds     RebuildEnqueuer
	orchestrator OrchestratorRunner
	validate     *validator.Validator
}

func New(svc *service.Service, rebuilds RebuildEnqueuer, orchestrator OrchestratorRunner, validate *validator.Validator) *Handler {
	return &Handler{
		svc:          svc,
		rebuilds:     rebuilds,
		orchestrator: orchestrator,
		validate:     validate,
	}
}

// RegisterRoutes mounts the deals API on the authenticated group.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	deals := api.Group("/deals")
	{
		deals.POST("/rebuild", h.rebuild)
		deals.POST("/emails", h.ingestEmail)
		deals.GET("", h.listDeals)
		deals.GET("/threads", h.listThreads)
		deals.GET("/threads/:id", h.getThread)
		deals.PUT("/threads/:id/associations", h.updateAssociations)
		deals.POST("/:id/negotiation/extract-offer", h.extractOffer)
		deals.POST("/:id/negotiation/counter", h.proposeCounter)
		deals.POST("/:id/negotiation/accept", h.acceptOffer)
		deals.POST("/:id/negotiation/decline", h.declineOffer)
		deals.GET("/:id/insights", h.getInsight)
		deals.POST("/:id/insights", h.refreshInsight)
		deals.POST("/:id/suggest-reply", h.suggestReply)
		deals.POST("/:id/send-reply", h.sendReply)
		deals.GET("/:id/history", h.history)
	}

	orchestrator := api.Group("/orchestrator", httpkit.RequireRole(httpkit.RoleAdmin))
	{
		orchestrator.POST("/run", h.runOrchestrator)
		orchestrator.GET("/runs", h.listRuns)
		orchestrator.GET("/runs/:id", h.getRun)
	}
}

func (h *Handler) caller(c *gin.Context) (service.Caller, bool) {
	userID, ok := httpkit.UserID(c)
	if !ok {
		httpkit.RespondError(c, http.StatusUnauthorized, "missing identity")
		return service.Caller{}, false
	}
	return service.Caller{UserID: userID, IsAdmin: httpkit.IsAdmin(c)}, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.RespondError(c, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) rebuild(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	if err := h.rebuilds.EnqueueRebuild(c.Request.Context(), caller.UserID); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "rebuild scheduled"})
}

func (h *Handler) ingestEmail(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req transport.IngestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.RespondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if fieldErrs := h.validate.Struct(req); fieldErrs != nil {
		httpkit.RespondValidationError(c, fieldErrs)
		return
	}

	params := service.IngestEmailParams{
		OwnerID:  caller.UserID,
		Subject:  req.Subject,
		Snippet:  req.Snippet,
		Body:     req.Body,
		FromAddr: req.FromAddr,
		ToAddr:   req.ToAddr,
	}
	if req.ReceivedAt != nil {
		params.ReceivedAt = *req.ReceivedAt
	}

	email, err := h.svc.IngestEmail(c.Request.Context(), params)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": email.ID})
}

func (h *Handler) listThreads(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	views, err := h.svc.GetThreads(c.Request.Context(), caller.UserID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": transport.FromThreadViews(views)})
}

func (h *Handler) getThread(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	view, emails, err := h.svc.GetThread(c.Request.Context(), caller, id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"thread": transport.FromThreadView(view),
		"emails": transport.FromThreadEmails(emails),
	})
}

func (h *Handler) listDeals(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	views, err := h.svc.ListDeals(c.Request.Context(), caller, service.ListDealsFilters{
		Stage:  domain.Stage(c.Query("stage")),
		Status: c.Query("status"),
		Brand:  c.Query("brand"),
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deals": transport.FromThreadViews(views)})
}

func (h *Handler) updateAssociations(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.UpdateAssociationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.RespondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	thread, err := h.svc.UpdateAssociations(c.Request.Context(), caller, id, req.TalentIDs, req.AgentIDs)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        thread.ID,
		"talentIds": thread.TalentIDs,
		"agentIds":  thread.AgentIDs,
	})
}

func (h *Handler) extractOffer(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	negotiation, err := h.svc.ExtractOffer(c.Request.Context(), caller, id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, transport.FromNegotiation(negotiation))
}

func (h *Handler) proposeCounter(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.CounterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.RespondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if fieldErrs := h.validate.Struct(req); fieldErrs != nil {
		httpkit.RespondValidationError(c, fieldErrs)
		return
	}

	negotiation, err := h.svc.ProposeCounter(c.Request.Context(), caller, id, req.Terms.ToDomain())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, transport.FromNegotiation(negotiation))
}

func (h *Handler) acceptOffer(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	negotiation, err := h.svc.AcceptOffer(c.Request.Context(), caller, id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, transport.FromNegotiation(negotiation))
}

func (h *Handler) declineOffer(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	negotiation, err := h.svc.DeclineOffer(c.Request.Context(), caller, id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, transport.FromNegotiation(negotiation))
}

func (h *Handler) getInsight(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	insight, err := h.svc.GetInsight(c.Request.Context(), caller, id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, transport.FromInsight(insight))
}

func (h *Handler) refreshInsight(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	insight, err := h.svc.RefreshInsight(c.Request.Context(), caller, id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, transport.FromInsight(insight))
}

func (h *Handler) suggestReply(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	draft, err := h.svc.SuggestReply(c.Request.Context(), caller, id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

func (h *Handler) sendReply(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.SendReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.RespondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.SendSuggestedReply(c.Request.Context(), caller, id, req.Body); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (h *Handler) history(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	negotiation, timeline, err := h.svc.History(c.Request.Context(), caller, id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"negotiation": transport.FromNegotiation(negotiation),
		"timeline":    transport.FromDealEvents(timeline),
	})
}

func (h *Handler) runOrchestrator(c *gin.Context) {
	run, err := h.orchestrator.Run(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, transport.FromRun(run))
}

func (h *Handler) listRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.svc.ListRuns(c.Request.Context(), limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]transport.RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, transport.FromRun(run))
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

func (h *Handler) getRun(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	run, err := h.svc.GetRun(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, transport.FromRun(run))
}
