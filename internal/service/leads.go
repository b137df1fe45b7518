package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"pharmacrm/internal/models"
	"pharmacrm/internal/repository"
)

type LeadService struct {
	leads  repository.LeadRepository
	logger *zap.SugaredLogger
}

func NewLeadService(leads repository.LeadRepository, logger *zap.SugaredLogger) *LeadService {
	return &LeadService{leads: leads, logger: logger}
}

type CreateLeadRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone"`
	Source   string `json:"source"`
	Priority string `json:"priority"`
	Note     string `json:"note"`
}

func (s *LeadService) Create(ctx context.Context, req CreateLeadRequest, author string) (*models.Lead, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidInput("name is required")
	}
	priority, err := models.ParseLeadPriority(req.Priority)
	if err != nil {
		return nil, invalidInput("%v", err)
	}

	l := &models.Lead{
		Name:     name,
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:    strings.TrimSpace(req.Phone),
		Source:   strings.TrimSpace(req.Source),
		Stage:    models.LeadNew,
		Priority: priority,
		Notes:    []models.LeadNote{},
	}
	if note := strings.TrimSpace(req.Note); note != "" {
		l.Notes = append(l.Notes, models.LeadNote{Text: note, Author: author, CreatedAt: time.Now().UTC()})
	}
	if err := s.leads.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	s.logger.Infow("lead created", "lead_id", l.ID.Hex(), "source", l.Source)
	return l, nil
}

func (s *LeadService) List(ctx context.Context, stage string) ([]models.Lead, error) {
	f := repository.LeadFilter{}
	if strings.TrimSpace(stage) != "" {
		parsed, err := models.ParseLeadStage(stage)
		if err != nil {
			return nil, invalidInput("%v", err)
		}
		f.Stage = parsed
	}
	leads, err := s.leads.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}

func (s *LeadService) Get(ctx context.Context, id primitive.ObjectID) (*models.Lead, error) {
	return s.leads.GetByID(ctx, id)
}

// UpdateStage moves a lead to any pipeline stage; the pipeline is not ordered.
func (s *LeadService) UpdateStage(ctx context.Context, id primitive.ObjectID, stage string) (*models.Lead, error) {
	if strings.TrimSpace(stage) == "" {
		return nil, invalidInput("stage is required")
	}
	parsed, err := models.ParseLeadStage(stage)
	if err != nil {
		return nil, invalidInput("%v", err)
	}
	l, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Stage = parsed
	if err := s.leads.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("update lead: %w", err)
	}
	return l, nil
}

func (s *LeadService) AddNote(ctx context.Context, id primitive.ObjectID, text, author string) (*models.Lead, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalidInput("note text is required")
	}
	l, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Notes = append(l.Notes, models.LeadNote{Text: text, Author: author, CreatedAt: time.Now().UTC()})
	if err := s.leads.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("update lead: %w", err)
	}
	return l, nil
}
