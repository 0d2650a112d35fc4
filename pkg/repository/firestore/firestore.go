package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
)

type Firestore struct {
	client       *firestore.Client
	userMappings *userMappingRepository
	roomMappings *roomMappingRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.userMappings.collectionPrefix = prefix
		f.roomMappings.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client", goerr.V("projectID", projectID))
	}

	f := &Firestore{
		client:       client,
		userMappings: newUserMappingRepository(client),
		roomMappings: newRoomMappingRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) UserMappings() interfaces.UserMappingRepository {
	return f.userMappings
}

func (f *Firestore) RoomMappings() interfaces.RoomMappingRepository {
	return f.roomMappings
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
