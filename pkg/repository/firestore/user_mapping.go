package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	userMappingsCollection = "user_mappings"
	syncMetadataCollection = "sync_metadata"
	resyncStatusDocument   = "resync_status"
)

type userMappingRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newUserMappingRepository(client *firestore.Client) *userMappingRepository {
	return &userMappingRepository{
		client: client,
	}
}

// userMappingDoc is the Firestore persistence model
type userMappingDoc struct {
	InternalID int64             `firestore:"internal_id"`
	RocketID   string            `firestore:"rocket_id"`
	Username   string            `firestore:"username"`
	FullName   string            `firestore:"full_name"`
	Email      string            `firestore:"email"`
	Active     bool              `firestore:"active"`
	Deleted    bool              `firestore:"deleted"`
	CreatedAt  time.Time         `firestore:"created_at"`
	LastSyncAt time.Time         `firestore:"last_sync_at"`
	Metadata   map[string]string `firestore:"metadata,omitempty"`
	Revision   int64             `firestore:"revision"`
}

// syncMetadataDoc is the Firestore persistence model for resync metadata
type syncMetadataDoc struct {
	LastRefreshSuccess time.Time `firestore:"last_refresh_success"`
	LastRefreshAttempt time.Time `firestore:"last_refresh_attempt"`
	MappingCount       int       `firestore:"mapping_count"`
}

func (r *userMappingRepository) collection() *firestore.CollectionRef {
	if r.collectionPrefix != "" {
		return r.client.Collection(r.collectionPrefix + "_" + userMappingsCollection)
	}
	return r.client.Collection(userMappingsCollection)
}

func (r *userMappingRepository) metadataCollection() *firestore.CollectionRef {
	if r.collectionPrefix != "" {
		return r.client.Collection(r.collectionPrefix + "_" + syncMetadataCollection)
	}
	return r.client.Collection(syncMetadataCollection)
}

func (r *userMappingRepository) toDoc(m *model.UserMapping) *userMappingDoc {
	return &userMappingDoc{
		InternalID: int64(m.InternalID),
		RocketID:   string(m.RocketID),
		Username:   m.Username,
		FullName:   m.FullName,
		Email:      m.Email,
		Active:     m.Active,
		Deleted:    m.Deleted,
		CreatedAt:  m.CreatedAt,
		LastSyncAt: m.LastSyncAt,
		Metadata:   m.Metadata,
		Revision:   m.Revision,
	}
}

func (r *userMappingRepository) fromDoc(doc *userMappingDoc) *model.UserMapping {
	return &model.UserMapping{
		InternalID: types.InternalUserID(doc.InternalID),
		RocketID:   types.RocketUserID(doc.RocketID),
		Username:   doc.Username,
		FullName:   doc.FullName,
		Email:      doc.Email,
		Active:     doc.Active,
		Deleted:    doc.Deleted,
		CreatedAt:  doc.CreatedAt,
		LastSyncAt: doc.LastSyncAt,
		Metadata:   doc.Metadata,
		Revision:   doc.Revision,
	}
}

// GetByInternalID retrieves a mapping by internal user ID, including
// soft-deleted records. Callers check the Deleted flag.
func (r *userMappingRepository) GetByInternalID(ctx context.Context, id types.InternalUserID) (*model.UserMapping, error) {
	doc, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "user mapping not found", goerr.V("internalID", id))
		}
		return nil, goerr.Wrap(err, "failed to get user mapping", goerr.V("internalID", id))
	}

	var mappingDoc userMappingDoc
	if err := doc.DataTo(&mappingDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal user mapping", goerr.V("internalID", id))
	}

	return r.fromDoc(&mappingDoc), nil
}

// GetByRocketID retrieves a live (non-deleted) mapping by Rocket.Chat user ID
func (r *userMappingRepository) GetByRocketID(ctx context.Context, id types.RocketUserID) (*model.UserMapping, error) {
	return r.queryOne(ctx,
		r.collection().Where("rocket_id", "==", string(id)).Where("deleted", "==", false),
		goerr.V("rocketID", id),
	)
}

// GetByUsername retrieves a live (non-deleted) mapping by external username
func (r *userMappingRepository) GetByUsername(ctx context.Context, username string) (*model.UserMapping, error) {
	return r.queryOne(ctx,
		r.collection().Where("username", "==", username).Where("deleted", "==", false),
		goerr.V("username", username),
	)
}

func (r *userMappingRepository) queryOne(ctx context.Context, q firestore.Query, ev goerr.Option) (*model.UserMapping, error) {
	iter := q.Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(ErrNotFound, "user mapping not found", ev)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query user mapping", ev)
	}

	var mappingDoc userMappingDoc
	if err := doc.DataTo(&mappingDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal user mapping", ev)
	}

	return r.fromDoc(&mappingDoc), nil
}

// Put upserts a mapping inside a transaction with compare-and-set on Revision
func (r *userMappingRepository) Put(ctx context.Context, mapping *model.UserMapping) (*model.UserMapping, error) {
	if err := mapping.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid user mapping")
	}

	stored := mapping.Clone()

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := r.collection().Doc(mapping.InternalID.String())

		doc, err := tx.Get(ref)
		switch {
		case err != nil && status.Code(err) == codes.NotFound:
			if mapping.Revision != 0 {
				return goerr.Wrap(ErrRevisionMismatch, "user mapping does not exist",
					goerr.V("internalID", mapping.InternalID),
					goerr.V("want", mapping.Revision),
				)
			}
		case err != nil:
			return goerr.Wrap(err, "failed to read user mapping", goerr.V("internalID", mapping.InternalID))
		default:
			var current userMappingDoc
			if err := doc.DataTo(&current); err != nil {
				return goerr.Wrap(err, "failed to unmarshal user mapping", goerr.V("internalID", mapping.InternalID))
			}
			if current.Revision != mapping.Revision {
				return goerr.Wrap(ErrRevisionMismatch, "user mapping was updated concurrently",
					goerr.V("internalID", mapping.InternalID),
					goerr.V("want", mapping.Revision),
					goerr.V("have", current.Revision),
				)
			}
		}

		// One live mapping per external user ID
		if !mapping.Deleted {
			dupIter := tx.Documents(r.collection().
				Where("rocket_id", "==", string(mapping.RocketID)).
				Where("deleted", "==", false).
				Limit(2))
			defer dupIter.Stop()
			for {
				dup, err := dupIter.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to check rocket ID uniqueness", goerr.V("rocketID", mapping.RocketID))
				}
				if dup.Ref.ID != mapping.InternalID.String() {
					return goerr.Wrap(ErrDuplicateExternalID, "rocket user already mapped",
						goerr.V("rocketID", mapping.RocketID),
						goerr.V("mappedTo", dup.Ref.ID),
					)
				}
			}
		}

		stored.Revision = mapping.Revision + 1
		return tx.Set(ref, r.toDoc(stored))
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

// SoftDelete marks a mapping deleted; the record is kept
func (r *userMappingRepository) SoftDelete(ctx context.Context, id types.InternalUserID) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := r.collection().Doc(id.String())

		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "user mapping not found", goerr.V("internalID", id))
			}
			return goerr.Wrap(err, "failed to read user mapping", goerr.V("internalID", id))
		}

		var current userMappingDoc
		if err := doc.DataTo(&current); err != nil {
			return goerr.Wrap(err, "failed to unmarshal user mapping", goerr.V("internalID", id))
		}

		current.Deleted = true
		current.Active = false
		current.LastSyncAt = time.Now().UTC()
		current.Revision++
		return tx.Set(ref, &current)
	})
}

// List retrieves all mappings, soft-deleted included
func (r *userMappingRepository) List(ctx context.Context) ([]*model.UserMapping, error) {
	iter := r.collection().Documents(ctx)
	defer iter.Stop()

	var mappings []*model.UserMapping
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate user mappings")
		}

		var mappingDoc userMappingDoc
		if err := doc.DataTo(&mappingDoc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal user mapping", goerr.V("docID", doc.Ref.ID))
		}

		mappings = append(mappings, r.fromDoc(&mappingDoc))
	}

	return mappings, nil
}

// GetMetadata retrieves resync metadata
func (r *userMappingRepository) GetMetadata(ctx context.Context) (*model.UserMappingMetadata, error) {
	doc, err := r.metadataCollection().Doc(resyncStatusDocument).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			// Zero value if metadata doesn't exist yet
			return &model.UserMappingMetadata{}, nil
		}
		return nil, goerr.Wrap(err, "failed to get sync metadata")
	}

	var metadataDoc syncMetadataDoc
	if err := doc.DataTo(&metadataDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal sync metadata")
	}

	return &model.UserMappingMetadata{
		LastRefreshSuccess: metadataDoc.LastRefreshSuccess,
		LastRefreshAttempt: metadataDoc.LastRefreshAttempt,
		MappingCount:       metadataDoc.MappingCount,
	}, nil
}

// SaveMetadata saves resync metadata
func (r *userMappingRepository) SaveMetadata(ctx context.Context, metadata *model.UserMappingMetadata) error {
	_, err := r.metadataCollection().Doc(resyncStatusDocument).Set(ctx, &syncMetadataDoc{
		LastRefreshSuccess: metadata.LastRefreshSuccess,
		LastRefreshAttempt: metadata.LastRefreshAttempt,
		MappingCount:       metadata.MappingCount,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to save sync metadata")
	}
	return nil
}
