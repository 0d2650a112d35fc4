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

const roomMappingsCollection = "room_mappings"

type roomMappingRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newRoomMappingRepository(client *firestore.Client) *roomMappingRepository {
	return &roomMappingRepository{
		client: client,
	}
}

// roomMappingDoc is the Firestore persistence model
type roomMappingDoc struct {
	Code        string    `firestore:"code"`
	RoomID      string    `firestore:"room_id"`
	DisplayName string    `firestore:"display_name"`
	Private     bool      `firestore:"private"`
	ReadOnly    bool      `firestore:"read_only"`
	Department  string    `firestore:"department,omitempty"`
	Project     string    `firestore:"project,omitempty"`
	MemberCount int       `firestore:"member_count"`
	Archived    bool      `firestore:"archived"`
	CreatedAt   time.Time `firestore:"created_at"`
	Revision    int64     `firestore:"revision"`
}

func (r *roomMappingRepository) collection() *firestore.CollectionRef {
	if r.collectionPrefix != "" {
		return r.client.Collection(r.collectionPrefix + "_" + roomMappingsCollection)
	}
	return r.client.Collection(roomMappingsCollection)
}

func (r *roomMappingRepository) toDoc(m *model.RoomMapping) *roomMappingDoc {
	return &roomMappingDoc{
		Code:        string(m.Code),
		RoomID:      string(m.RoomID),
		DisplayName: m.DisplayName,
		Private:     m.Private,
		ReadOnly:    m.ReadOnly,
		Department:  m.Department,
		Project:     m.Project,
		MemberCount: m.MemberCount,
		Archived:    m.Archived,
		CreatedAt:   m.CreatedAt,
		Revision:    m.Revision,
	}
}

func (r *roomMappingRepository) fromDoc(doc *roomMappingDoc) *model.RoomMapping {
	return &model.RoomMapping{
		Code:        types.RoomCode(doc.Code),
		RoomID:      types.RoomID(doc.RoomID),
		DisplayName: doc.DisplayName,
		Private:     doc.Private,
		ReadOnly:    doc.ReadOnly,
		Department:  doc.Department,
		Project:     doc.Project,
		MemberCount: doc.MemberCount,
		Archived:    doc.Archived,
		CreatedAt:   doc.CreatedAt,
		Revision:    doc.Revision,
	}
}

// GetByCode retrieves a mapping by room code
func (r *roomMappingRepository) GetByCode(ctx context.Context, code types.RoomCode) (*model.RoomMapping, error) {
	doc, err := r.collection().Doc(code.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "room mapping not found", goerr.V("code", code))
		}
		return nil, goerr.Wrap(err, "failed to get room mapping", goerr.V("code", code))
	}

	var mappingDoc roomMappingDoc
	if err := doc.DataTo(&mappingDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal room mapping", goerr.V("code", code))
	}

	return r.fromDoc(&mappingDoc), nil
}

// GetByRoomID retrieves a mapping by Rocket.Chat room ID
func (r *roomMappingRepository) GetByRoomID(ctx context.Context, id types.RoomID) (*model.RoomMapping, error) {
	iter := r.collection().Where("room_id", "==", string(id)).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(ErrNotFound, "room mapping not found", goerr.V("roomID", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query room mapping", goerr.V("roomID", id))
	}

	var mappingDoc roomMappingDoc
	if err := doc.DataTo(&mappingDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal room mapping", goerr.V("roomID", id))
	}

	return r.fromDoc(&mappingDoc), nil
}

// Put upserts a mapping inside a transaction with compare-and-set on Revision
func (r *roomMappingRepository) Put(ctx context.Context, mapping *model.RoomMapping) (*model.RoomMapping, error) {
	if err := mapping.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid room mapping")
	}

	stored := mapping.Clone()

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := r.collection().Doc(mapping.Code.String())

		doc, err := tx.Get(ref)
		switch {
		case err != nil && status.Code(err) == codes.NotFound:
			if mapping.Revision != 0 {
				return goerr.Wrap(ErrRevisionMismatch, "room mapping does not exist",
					goerr.V("code", mapping.Code),
					goerr.V("want", mapping.Revision),
				)
			}
		case err != nil:
			return goerr.Wrap(err, "failed to read room mapping", goerr.V("code", mapping.Code))
		default:
			var current roomMappingDoc
			if err := doc.DataTo(&current); err != nil {
				return goerr.Wrap(err, "failed to unmarshal room mapping", goerr.V("code", mapping.Code))
			}
			if current.Revision != mapping.Revision {
				return goerr.Wrap(ErrRevisionMismatch, "room mapping was updated concurrently",
					goerr.V("code", mapping.Code),
					goerr.V("want", mapping.Revision),
					goerr.V("have", current.Revision),
				)
			}
		}

		// One room code per external room ID
		dupIter := tx.Documents(r.collection().
			Where("room_id", "==", string(mapping.RoomID)).
			Limit(2))
		defer dupIter.Stop()
		for {
			dup, err := dupIter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return goerr.Wrap(err, "failed to check room ID uniqueness", goerr.V("roomID", mapping.RoomID))
			}
			if dup.Ref.ID != mapping.Code.String() {
				return goerr.Wrap(ErrDuplicateExternalID, "rocket room already mapped",
					goerr.V("roomID", mapping.RoomID),
					goerr.V("mappedTo", dup.Ref.ID),
				)
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

// List retrieves all room mappings
func (r *roomMappingRepository) List(ctx context.Context) ([]*model.RoomMapping, error) {
	iter := r.collection().Documents(ctx)
	defer iter.Stop()

	var mappings []*model.RoomMapping
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate room mappings")
		}

		var mappingDoc roomMappingDoc
		if err := doc.DataTo(&mappingDoc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal room mapping", goerr.V("docID", doc.Ref.ID))
		}

		mappings = append(mappings, r.fromDoc(&mappingDoc))
	}

	return mappings, nil
}
