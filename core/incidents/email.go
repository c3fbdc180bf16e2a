package incidents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SoloAWS/incident-command-service/core/apperr"
	"github.com/SoloAWS/incident-command-service/core/directory"
	"github.com/SoloAWS/incident-command-service/core/store"
)

type EmailRequest struct {
	Email       string
	CompanyName string
	Description string
}

// CreateFromEmail resolves the company and the sender through the user directory
// and writes nothing unless both checks pass.
func (s *Service) CreateFromEmail(ctx context.Context, req EmailRequest) (*store.Incident, error) {
	company, err := s.directory.CompanyByName(ctx, req.CompanyName)
	if err != nil {
		if unavailable(err) {
			return nil, s.upstreamError("company lookup", err)
		}
		var statusErr *directory.StatusError
		if !errors.As(err, &statusErr) {
			return nil, s.internalError("company lookup", err)
		}
		return nil, s.companyNotFound(ctx, req)
	}

	validation, err := s.directory.ValidateUser(ctx, req.Email, company.ID)
	if err != nil {
		if unavailable(err) {
			return nil, s.upstreamError("user validation", err)
		}
		var statusErr *directory.StatusError
		if !errors.As(err, &statusErr) {
			return nil, s.internalError("user validation", err)
		}
		return nil, apperr.New(apperr.KindEmailNotAuthorized,
			fmt.Sprintf("Email '%s' is not authorized for company '%s'", req.Email, req.CompanyName))
	}

	inc := &store.Incident{
		Description: req.Description,
		State:       store.StateOpen,
		Channel:     store.ChannelEmail,
		Priority:    store.PriorityMedium,
		UserID:      validation.UserID,
		CompanyID:   company.ID,
	}
	return s.create(ctx, inc, noteCreatedViaEmail)
}

func (s *Service) companyNotFound(ctx context.Context, req EmailRequest) error {
	companies, err := s.directory.CompaniesByEmail(ctx, req.Email)
	if err != nil {
		if unavailable(err) {
			return s.upstreamError("companies by email", err)
		}
		return apperr.New(apperr.KindCompanyNotFound, fmt.Sprintf("Company '%s' not found", req.CompanyName))
	}
	if len(companies) == 0 {
		return apperr.New(apperr.KindCompanyNotFound, fmt.Sprintf("Company '%s' not found", req.CompanyName))
	}
	names := make([]string, 0, len(companies))
	for _, c := range companies {
		names = append(names, c.Name)
	}
	return apperr.New(apperr.KindCompanyNotFound, fmt.Sprintf(
		"Company '%s' not found. Available companies for this email: %s",
		req.CompanyName, strings.Join(names, ", ")))
}

func unavailable(err error) bool {
	return errors.Is(err, directory.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}

func (s *Service) upstreamError(step string, err error) error {
	s.logger.Errorf("user directory %s: %v", step, err)
	return apperr.Wrap(apperr.KindUpstreamUnavailable, err, "User service unavailable")
}

func (s *Service) internalError(step string, err error) error {
	s.logger.Errorf("user directory %s: %v", step, err)
	return apperr.Internal(err)
}
