// Package transport defines the wire shapes of the deals API.
package transport

import (
	"time"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/domain"
	"agencydesk_backend/internal/deals/hydrate"
	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/internal/deals/service"
)

// ---- Requests ----

type IngestEmailRequest struct {
	Subject    string     `json:"subject" validate:"required,max=500"`
	Snippet    string     `json:"snippet" validate:"max=1000"`
	Body       string     `json:"body" validate:"required"`
	FromAddr   string     `json:"from" validate:"omitempty,email"`
	ToAddr     string     `json:"to" validate:"omitempty,email"`
	ReceivedAt *time.Time `json:"receivedAt"`
}

type DeliverableDTO struct {
	Type     string `json:"type" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
	Notes    string `json:"notes"`
}

type OfferTermsDTO struct {
	Currency     string           `json:"currency" validate:"required,len=3"`
	Amount       float64          `json:"amount" validate:"required,gt=0"`
	Deliverables []DeliverableDTO `json:"deliverables" validate:"dive"`
	UsageRights  string           `json:"usageRights"`
	Exclusivity  string           `json:"exclusivity"`
	Deadline     string           `json:"deadline"`
	Notes        string           `json:"notes"`
}

// ToDomain converts validated wire terms into domain terms.
func (d OfferTermsDTO) ToDomain() domain.OfferTerms {
	terms := domain.OfferTerms{
		Currency:    d.Currency,
		Amount:      d.Amount,
		UsageRights: d.UsageRights,
		Exclusivity: d.Exclusivity,
		Deadline:    d.Deadline,
		Notes:       d.Notes,
	}
	for _, del := range d.Deliverables {
		terms.Deliverables = append(terms.Deliverables, domain.Deliverable{
			Type:     del.Type,
			Quantity: del.Quantity,
			Notes:    del.Notes,
		})
	}
	return terms
}

type CounterRequest struct {
	Terms OfferTermsDTO `json:"terms" validate:"required"`
}

type UpdateAssociationsRequest struct {
	TalentIDs []uuid.UUID `json:"talentIds"`
	AgentIDs  []uuid.UUID `json:"agentIds"`
}

type SendReplyRequest struct {
	Body string `json:"body"`
}

// ---- Responses ----

type RecommendedRangeDTO struct {
	Min   float64 `json:"min"`
	Ideal float64 `json:"ideal"`
	Max   float64 `json:"max"`
}

type InsightResponse struct {
	DealID            uuid.UUID            `json:"dealId"`
	RecommendedRange  *RecommendedRangeDTO `json:"recommendedRange,omitempty"`
	LikelihoodToClose *int                 `json:"likelihoodToClose,omitempty"`
	Notes             string               `json:"notes,omitempty"`
	RedFlags          []string             `json:"redFlags"`
	FinalScript       string               `json:"finalScript"`
	UpdatedAt         time.Time            `json:"updatedAt"`
}

func FromInsight(insight repository.Insight) InsightResponse {
	out := InsightResponse{
		DealID:      insight.DealID,
		RedFlags:    insight.RedFlags,
		FinalScript: insight.FinalScript,
		UpdatedAt:   insight.UpdatedAt,
	}
	if out.RedFlags == nil {
		out.RedFlags = []string{}
	}
	if insight.RecommendedRange != nil {
		out.RecommendedRange = &RecommendedRangeDTO{
			Min:   insight.RecommendedRange.Min,
			Ideal: insight.RecommendedRange.Ideal,
			Max:   insight.RecommendedRange.Max,
		}
	}
	if insight.BrandContext != nil {
		out.LikelihoodToClose = insight.BrandContext.LikelihoodToClose
		out.Notes = insight.BrandContext.Notes
	}
	return out
}

type PersonDTO struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

type ThreadResponse struct {
	ID                 uuid.UUID    `json:"id"`
	OwnerID            uuid.UUID    `json:"ownerId"`
	BrandName          *string      `json:"brandName,omitempty"`
	BrandEmail         *string      `json:"brandEmail,omitempty"`
	SubjectRoot        string       `json:"subjectRoot"`
	Stage              domain.Stage `json:"stage"`
	Status             string       `json:"status"`
	Talent             []PersonDTO  `json:"talent"`
	Agents             []PersonDTO  `json:"agents"`
	LastBrandMessageAt *time.Time   `json:"lastBrandMessageAt,omitempty"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

func FromThreadView(view service.ThreadView) ThreadResponse {
	t := view.Thread
	return ThreadResponse{
		ID:                 t.ID,
		OwnerID:            t.OwnerID,
		BrandName:          t.BrandName,
		BrandEmail:         t.BrandEmail,
		SubjectRoot:        t.SubjectRoot,
		Stage:              t.Stage,
		Status:             t.Status,
		Talent:             fromPeople(view.Talent),
		Agents:             fromPeople(view.Agents),
		LastBrandMessageAt: t.LastBrandMessageAt,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func FromThreadViews(views []service.ThreadView) []ThreadResponse {
	out := make([]ThreadResponse, 0, len(views))
	for _, v := range views {
		out = append(out, FromThreadView(v))
	}
	return out
}

func fromPeople(people []hydrate.Person) []PersonDTO {
	out := make([]PersonDTO, 0, len(people))
	for _, p := range people {
		out = append(out, PersonDTO{ID: p.ID, Name: p.Name, Email: p.Email, Role: p.Role})
	}
	return out
}

type ThreadEmailDTO struct {
	EmailID    uuid.UUID `json:"emailId"`
	Subject    string    `json:"subject"`
	Snippet    string    `json:"snippet"`
	ReceivedAt time.Time `json:"receivedAt"`
}

func FromThreadEmails(emails []repository.ThreadEmail) []ThreadEmailDTO {
	out := make([]ThreadEmailDTO, 0, len(emails))
	for _, e := range emails {
		out = append(out, ThreadEmailDTO{
			EmailID:    e.EmailID,
			Subject:    e.Subject,
			Snippet:    e.Snippet,
			ReceivedAt: e.ReceivedAt,
		})
	}
	return out
}

type NegotiationResponse struct {
	DealID       uuid.UUID             `json:"dealId"`
	Status       string                `json:"status"`
	OfferTerms   *domain.OfferTerms    `json:"offerTerms,omitempty"`
	CounterTerms *domain.OfferTerms    `json:"counterTerms,omitempty"`
	History      []domain.HistoryEntry `json:"history"`
}

func FromNegotiation(n repository.Negotiation) NegotiationResponse {
	history := n.History
	if history == nil {
		history = []domain.HistoryEntry{}
	}
	return NegotiationResponse{
		DealID:       n.DealID,
		Status:       string(n.Status),
		OfferTerms:   n.OfferTerms,
		CounterTerms: n.CounterTerms,
		History:      history,
	}
}

type DealEventDTO struct {
	ID        uuid.UUID      `json:"id"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func FromDealEvents(events []repository.DealEvent) []DealEventDTO {
	out := make([]DealEventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, DealEventDTO{
			ID:        e.ID,
			Type:      e.Type,
			Message:   e.Message,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

type RunResponse struct {
	ID          uuid.UUID      `json:"id"`
	Status      string         `json:"status"`
	Summary     map[string]any `json:"summary,omitempty"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

func FromRun(run repository.AgentRun) RunResponse {
	return RunResponse{
		ID:          run.ID,
		Status:      run.Status,
		Summary:     run.Summary,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
	}
}
