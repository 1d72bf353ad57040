package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leaddesk/internal/util"
	"leaddesk/pkg/domain"
	"leaddesk/pkg/notify"
	"leaddesk/pkg/store"
)

// ContactInput is the public contact form.
type ContactInput struct {
	Name           string  `json:"name"`
	CompanyName    string  `json:"company_name"`
	AnnualTurnover *string `json:"annual_turnover"`
	MobileNumber   string  `json:"mobile_number"`
	Email          *string `json:"email"`
	Message        *string `json:"message"`
}

// ApplicationInput is the homepage IPO-evaluation form.
type ApplicationInput struct {
	Name           string `json:"name"`
	CompanyName    string `json:"company_name"`
	AnnualTurnover string `json:"annual_turnover"`
	MobileNumber   string `json:"mobile_number"`
}

// SubmitContact stores a contact inquiry and queues its notification.
func (a *App) SubmitContact(ctx context.Context, in ContactInput) (domain.Submission, error) {
	if err := requireFields(
		"name", in.Name,
		"company_name", in.CompanyName,
		"mobile_number", in.MobileNumber,
	); err != nil {
		return domain.Submission{}, err
	}
	s := a.newSubmission(in.Name, in.CompanyName, in.MobileNumber)
	s.AnnualTurnover = in.AnnualTurnover
	s.Email = in.Email
	s.Message = in.Message
	if err := a.store.InsertSubmission(ctx, domain.CollectionContacts, s); err != nil {
		return domain.Submission{}, fmt.Errorf("insert contact: %w", err)
	}
	a.dispatch(notify.NewEvent(notify.KindContactSubmitted, s))
	return s, nil
}

// SubmitApplication stores an IPO application and queues its notification.
func (a *App) SubmitApplication(ctx context.Context, in ApplicationInput) (domain.Submission, error) {
	if err := requireFields(
		"name", in.Name,
		"company_name", in.CompanyName,
		"annual_turnover", in.AnnualTurnover,
		"mobile_number", in.MobileNumber,
	); err != nil {
		return domain.Submission{}, err
	}
	s := a.newSubmission(in.Name, in.CompanyName, in.MobileNumber)
	turnover := in.AnnualTurnover
	s.AnnualTurnover = &turnover
	if err := a.store.InsertSubmission(ctx, domain.CollectionApplications, s); err != nil {
		return domain.Submission{}, fmt.Errorf("insert application: %w", err)
	}
	a.dispatch(notify.NewEvent(notify.KindApplicationSubmitted, s))
	return s, nil
}

// ListSubmissions returns a collection newest first, up to the admin list cap.
func (a *App) ListSubmissions(ctx context.Context, coll domain.Collection, status string) ([]domain.Submission, error) {
	items, err := a.store.FindSubmissions(ctx, coll, store.Query{
		Filter: store.Filter{Status: strings.TrimSpace(status)},
		Limit:  a.adminListLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", coll, err)
	}
	return items, nil
}

// UpdateSubmission applies an admin patch. An empty patch is rejected
// without touching the store.
func (a *App) UpdateSubmission(ctx context.Context, coll domain.Collection, id string, patch domain.SubmissionPatch) (domain.Submission, error) {
	if patch.Empty() {
		return domain.Submission{}, ErrEmptyUpdate
	}
	s, err := a.store.UpdateSubmission(ctx, coll, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Submission{}, notFound(submissionResource(coll), err)
		}
		return domain.Submission{}, fmt.Errorf("update %s %s: %w", coll, id, err)
	}
	return s, nil
}

// DeleteSubmission removes a submission permanently.
func (a *App) DeleteSubmission(ctx context.Context, coll domain.Collection, id string) error {
	if err := a.store.DeleteSubmission(ctx, coll, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(submissionResource(coll), err)
		}
		return fmt.Errorf("delete %s %s: %w", coll, id, err)
	}
	return nil
}

func (a *App) newSubmission(name, company, mobile string) domain.Submission {
	return domain.Submission{
		ID:           util.NewID(),
		Name:         strings.TrimSpace(name),
		CompanyName:  strings.TrimSpace(company),
		MobileNumber: strings.TrimSpace(mobile),
		CreatedAt:    a.now().UTC(),
		Status:       domain.StatusPending,
		Notes:        "",
	}
}

func submissionResource(coll domain.Collection) string {
	switch coll {
	case domain.CollectionContacts:
		return "Contact"
	case domain.CollectionApplications:
		return "Application"
	default:
		return "Record"
	}
}

// requireFields takes name/value pairs and rejects the first blank value.
func requireFields(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return invalid("%s is required", pairs[i])
		}
	}
	return nil
}
