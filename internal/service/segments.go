package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"pharmacrm/internal/models"
	"pharmacrm/internal/repository"
	"pharmacrm/internal/segmentation"
)

type SegmentService struct {
	orders    repository.OrderRepository
	customers repository.CustomerRepository
}

func NewSegmentService(orders repository.OrderRepository, customers repository.CustomerRepository) *SegmentService {
	return &SegmentService{orders: orders, customers: customers}
}

// Report scans every order and classifies each customer as of now.
func (s *SegmentService) Report(ctx context.Context, now time.Time) (*segmentation.Report, error) {
	var (
		orders    []models.Order
		customers []models.Customer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.orders.List(gctx, repository.OrderFilter{})
		if err != nil {
			return fmt.Errorf("load orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		customers, err = s.customers.List(gctx)
		if err != nil {
			return fmt.Errorf("load customers: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	profiles := segmentation.Classify(orders, now)
	segmentation.Enrich(profiles, customers)
	report := segmentation.NewReport(profiles, now)
	return &report, nil
}

// Customers returns the profiles in one segment.
func (s *SegmentService) Customers(ctx context.Context, segment string, now time.Time) ([]segmentation.Profile, error) {
	parsed, err := models.ParseSegment(segment)
	if err != nil {
		return nil, invalidInput("%v", err)
	}
	report, err := s.Report(ctx, now)
	if err != nil {
		return nil, err
	}
	return report.Members(parsed), nil
}
