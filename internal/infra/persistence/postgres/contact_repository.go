// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"contactmap/internal/domain/entity"
	domainerrors "contactmap/internal/domain/errors"
	"contactmap/internal/domain/repository"
	"contactmap/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// contactRepository implements the repository.ContactRepository interface.
type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository is the constructor for contactRepository.
func NewContactRepository(db *gorm.DB) repository.ContactRepository {
	return &contactRepository{
		db: db,
	}
}

// CreateContact persists a new contact with its addresses.
func (repo *contactRepository) CreateContact(ctx context.Context, contact *entity.Contact) error {
	contactM := fromContactDomain(contact)

	if err := repo.db.WithContext(ctx).Create(contactM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrContactImportFailed.WrapMessage("contact with this external ID already exists")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrContactImportFailed.WrapMessage("missing required contact information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create contact")
	}

	// Update the entity with generated values
	contact.ID = contactM.ID
	contact.CreatedAt = contactM.CreatedAt
	contact.UpdatedAt = contactM.UpdatedAt

	if len(contact.Addresses) == 0 {
		return nil
	}

	addressModels := fromAddressesDomain(contact.ID, contact.Addresses)
	if err := repo.db.WithContext(ctx).Create(&addressModels).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create contact addresses")
	}

	return nil
}

// FindContactByID retrieves a contact, addresses included, by its unique ID.
func (repo *contactRepository) FindContactByID(ctx context.Context, id uuid.UUID) (*entity.Contact, error) {
	var contactM model.ContactModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&contactM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrContactNotFound
		}

		return nil, errors.Wrap(err, "failed to find contact by ID")
	}

	addresses, err := repo.findAddresses(ctx, id)
	if err != nil {
		return nil, err
	}

	return toContactDomain(&contactM, addresses), nil
}

// FindContactByExternalID retrieves a contact by the identifier assigned by
// the device address book.
func (repo *contactRepository) FindContactByExternalID(ctx context.Context, externalID string) (*entity.Contact, error) {
	var contactM model.ContactModel

	if err := repo.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&contactM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrContactNotFound
		}

		return nil, errors.Wrap(err, "failed to find contact by external ID")
	}

	addresses, err := repo.findAddresses(ctx, contactM.ID)
	if err != nil {
		return nil, err
	}

	return toContactDomain(&contactM, addresses), nil
}

// ListContacts retrieves all contacts with their addresses, ordered by display name.
func (repo *contactRepository) ListContacts(ctx context.Context) ([]*entity.Contact, error) {
	var contactModels []*model.ContactModel

	if err := repo.db.WithContext(ctx).
		Order("display_name ASC, id ASC").
		Find(&contactModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list contacts")
	}

	if len(contactModels) == 0 {
		return []*entity.Contact{}, nil
	}

	contactIDs := make([]uuid.UUID, 0, len(contactModels))
	for _, contactM := range contactModels {
		contactIDs = append(contactIDs, contactM.ID)
	}

	var addressModels []*model.ContactAddressModel
	if err := repo.db.WithContext(ctx).
		Where("contact_id IN ?", contactIDs).
		Order("contact_id ASC, position ASC").
		Find(&addressModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list contact addresses")
	}

	addressesByContact := make(map[uuid.UUID][]entity.Address, len(contactModels))
	for _, addressM := range addressModels {
		addressesByContact[addressM.ContactID] = append(addressesByContact[addressM.ContactID], *toAddressDomain(addressM))
	}

	contacts := make([]*entity.Contact, 0, len(contactModels))
	for _, contactM := range contactModels {
		contacts = append(contacts, toContactDomain(contactM, addressesByContact[contactM.ID]))
	}

	return contacts, nil
}

// ReplaceAddresses replaces the contact's whole address collection and
// updates the display name.
func (repo *contactRepository) ReplaceAddresses(ctx context.Context, contactID uuid.UUID, displayName string, addresses []entity.Address) error {
	result := repo.db.WithContext(ctx).
		Model(&model.ContactModel{}).
		Where("id = ?", contactID).
		Updates(map[string]any{
			"display_name": displayName,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update contact")
	}
	if result.RowsAffected == 0 {
		return repository.ErrContactNotFound
	}

	if err := repo.db.WithContext(ctx).
		Where("contact_id = ?", contactID).
		Delete(&model.ContactAddressModel{}).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to clear contact addresses")
	}

	if len(addresses) == 0 {
		return nil
	}

	addressModels := fromAddressesDomain(contactID, addresses)
	if err := repo.db.WithContext(ctx).Create(&addressModels).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to replace contact addresses")
	}

	return nil
}

// UpdateAddressGeocode writes a geocoding result onto one address, identified
// by its position in the contact's collection. All four geocode-metadata
// columns are written in one statement.
func (repo *contactRepository) UpdateAddressGeocode(ctx context.Context, contactID uuid.UUID, position int, lat, lng float64, fieldsHash string, geocodedAt time.Time) error {
	result := repo.db.WithContext(ctx).
		Model(&model.ContactAddressModel{}).
		Where("contact_id = ? AND position = ?", contactID, position).
		Updates(map[string]any{
			"latitude":             lat,
			"longitude":            lng,
			"geocoded_fields_hash": fieldsHash,
			"geocoded_at":          geocodedAt,
		})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update address geocode")
	}

	if result.RowsAffected == 0 {
		return repository.ErrAddressIndexOutOfRange
	}

	return nil
}

// DeleteContactsNotIn removes contacts whose external ID is not in the given
// set, along with their addresses. An empty set removes everything: the
// external source is authoritative.
func (repo *contactRepository) DeleteContactsNotIn(ctx context.Context, externalIDs []string) (int64, error) {
	contactQuery := repo.db.WithContext(ctx).
		Model(&model.ContactModel{}).
		Select("id")
	if len(externalIDs) > 0 {
		contactQuery = contactQuery.Where("external_id NOT IN ?", externalIDs)
	}

	if err := repo.db.WithContext(ctx).
		Where("contact_id IN (?)", contactQuery).
		Delete(&model.ContactAddressModel{}).Error; err != nil {
		return 0, errors.Wrap(err, "failed to delete orphaned addresses")
	}

	deletion := repo.db.WithContext(ctx)
	if len(externalIDs) > 0 {
		deletion = deletion.Where("external_id NOT IN ?", externalIDs)
	} else {
		deletion = deletion.Where("1 = 1")
	}

	result := deletion.Delete(&model.ContactModel{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete removed contacts")
	}

	return result.RowsAffected, nil
}

func (repo *contactRepository) findAddresses(ctx context.Context, contactID uuid.UUID) ([]entity.Address, error) {
	var addressModels []*model.ContactAddressModel

	if err := repo.db.WithContext(ctx).
		Where("contact_id = ?", contactID).
		Order("position ASC").
		Find(&addressModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find contact addresses")
	}

	addresses := make([]entity.Address, 0, len(addressModels))
	for _, addressM := range addressModels {
		addresses = append(addresses, *toAddressDomain(addressM))
	}

	return addresses, nil
}

// --- Mapper Functions ---

// toContactDomain converts a GORM ContactModel to a domain Contact entity.
func toContactDomain(data *model.ContactModel, addresses []entity.Address) *entity.Contact {
	if data == nil {
		return nil
	}

	return &entity.Contact{
		ID:          data.ID,
		ExternalID:  data.ExternalID,
		DisplayName: data.DisplayName,
		Addresses:   addresses,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
	}
}

// fromContactDomain converts a domain Contact entity to a GORM ContactModel.
func fromContactDomain(data *entity.Contact) *model.ContactModel {
	if data == nil {
		return nil
	}

	return &model.ContactModel{
		ID:          data.ID,
		ExternalID:  data.ExternalID,
		DisplayName: data.DisplayName,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
	}
}

// toAddressDomain converts a GORM ContactAddressModel to a domain Address.
func toAddressDomain(data *model.ContactAddressModel) *entity.Address {
	if data == nil {
		return nil
	}

	return &entity.Address{
		Label:              data.Label,
		Street:             data.Street,
		City:               data.City,
		State:              data.State,
		PostalCode:         data.PostalCode,
		Country:            data.Country,
		Latitude:           data.Latitude,
		Longitude:          data.Longitude,
		GeocodedFieldsHash: data.GeocodedFieldsHash,
		GeocodedAt:         data.GeocodedAt,
	}
}

// fromAddressesDomain converts a domain address collection to GORM models,
// recording each address's index as its position.
func fromAddressesDomain(contactID uuid.UUID, addresses []entity.Address) []*model.ContactAddressModel {
	addressModels := make([]*model.ContactAddressModel, 0, len(addresses))
	for position := range addresses {
		addr := &addresses[position]
		addressModels = append(addressModels, &model.ContactAddressModel{
			ContactID:          contactID,
			Position:           position,
			Label:              addr.Label,
			Street:             addr.Street,
			City:               addr.City,
			State:              addr.State,
			PostalCode:         addr.PostalCode,
			Country:            addr.Country,
			Latitude:           addr.Latitude,
			Longitude:          addr.Longitude,
			GeocodedFieldsHash: addr.GeocodedFieldsHash,
			GeocodedAt:         addr.GeocodedAt,
		})
	}

	return addressModels
}
