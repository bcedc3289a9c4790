package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "contactmap/internal/delivery/context"
	"contactmap/internal/domain/entity"
	"contactmap/internal/domain/repository"
	"contactmap/internal/domain/service"
	"contactmap/internal/errors"
	"contactmap/internal/usecase"

	"github.com/google/uuid"
)

type syncService struct {
	txManager   repository.TransactionManager
	contactRepo repository.ContactRepository
	publisher   service.EventPublisher
	logger      *slog.Logger
}

// NewSyncService creates the contact import/read service.
func NewSyncService(
	txManager repository.TransactionManager,
	contactRepo repository.ContactRepository,
	publisher service.EventPublisher,
	logger *slog.Logger,
) usecase.SyncUsecase {
	return &syncService{
		txManager:   txManager,
		contactRepo: contactRepo,
		publisher:   publisher,
		logger:      logger,
	}
}

// ImportContacts replaces the stored contact set with the imported batch.
// Each contact's address list goes through reconciliation so geocoding
// results survive for unchanged addresses; contacts absent from the batch
// are removed. The whole import runs in one transaction, and a scan event is
// published afterwards so the geo worker picks up the pending addresses.
func (s *syncService) ImportContacts(ctx context.Context, batch []usecase.ContactInput) (*usecase.SyncResult, error) {
	result := &usecase.SyncResult{
		ContactIDs: make([]uuid.UUID, 0, len(batch)),
	}

	err := s.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.NewContactRepository()

		externalIDs := make([]string, 0, len(batch))
		for _, input := range batch {
			externalIDs = append(externalIDs, input.ExternalID)

			contact, pending, err := s.importOne(ctx, repo, input)
			if err != nil {
				return err
			}

			result.Imported++
			result.PendingGeocode += pending
			result.ContactIDs = append(result.ContactIDs, contact.ID)
		}

		removed, err := repo.DeleteContactsNotIn(ctx, externalIDs)
		if err != nil {
			return errors.Wrap(err, "failed to remove contacts missing from import")
		}
		result.Removed = removed

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishScanEvent(ctx, result)

	return result, nil
}

// importOne creates or updates a single contact and returns how many of its
// addresses still need geocoding.
func (s *syncService) importOne(ctx context.Context, repo repository.ContactRepository, input usecase.ContactInput) (*entity.Contact, int, error) {
	previous, err := repo.FindContactByExternalID(ctx, input.ExternalID)
	switch {
	case err == nil:
		reconciled := ReconcileAddresses(previous.Addresses, input.Addresses)
		if err := repo.ReplaceAddresses(ctx, previous.ID, input.DisplayName, reconciled); err != nil {
			return nil, 0, errors.Wrapf(err, "failed to replace addresses for contact %s", input.ExternalID)
		}
		previous.DisplayName = input.DisplayName
		previous.Addresses = reconciled

		return previous, countPending(reconciled), nil

	case errors.Is(err, repository.ErrContactNotFound):
		contact := &entity.Contact{
			ID:          uuid.New(),
			ExternalID:  input.ExternalID,
			DisplayName: input.DisplayName,
			Addresses:   ReconcileAddresses(nil, input.Addresses),
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		if err := repo.CreateContact(ctx, contact); err != nil {
			return nil, 0, errors.Wrapf(err, "failed to create contact %s", input.ExternalID)
		}

		return contact, countPending(contact.Addresses), nil

	default:
		return nil, 0, errors.Wrapf(err, "failed to look up contact %s", input.ExternalID)
	}
}

func (s *syncService) publishScanEvent(ctx context.Context, result *usecase.SyncResult) {
	if s.publisher == nil || result.PendingGeocode == 0 {
		return
	}

	contactIDs := make([]string, 0, len(result.ContactIDs))
	for _, id := range result.ContactIDs {
		contactIDs = append(contactIDs, id.String())
	}

	event := &service.GeocodeEvent{
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		Event:      service.EventGeocodeScanRequested,
		ContactIDs: contactIDs,
	}
	if err := s.publisher.PublishGeocodeEvent(ctx, event); err != nil {
		// The import itself succeeded; the worker's periodic scan will still
		// find the pending addresses.
		s.logger.Error("Failed to publish geocode scan event",
			slog.Int("pending", result.PendingGeocode),
			slog.Any("error", err),
		)
	}
}

func (s *syncService) ListContacts(ctx context.Context) ([]*entity.Contact, error) {
	contacts, err := s.contactRepo.ListContacts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list contacts")
	}

	return contacts, nil
}

func (s *syncService) GetContact(ctx context.Context, id uuid.UUID) (*entity.Contact, error) {
	contact, err := s.contactRepo.FindContactByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return nil, repository.ErrContactNotFound
		}

		return nil, errors.Wrap(err, "failed to find contact by ID")
	}

	return contact, nil
}

func countPending(addresses []entity.Address) int {
	pending := 0
	for i := range addresses {
		if addresses[i].NeedsGeocoding() {
			pending++
		}
	}

	return pending
}
