package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go.pilab.hu/selfcare/domain"
)

const currentCredentialID = "current"

type credentialDoc struct {
	ID         string            `bson:"_id"`
	Credential domain.Credential `bson:"credential"`
	SavedAt    time.Time         `bson:"saved_at"`
}

// Store implements domain.CredentialStore on a MongoDB collection holding a
// single upserted document.
type Store struct {
	coll *mongo.Collection
}

// NewStore creates a credential store on db.
func NewStore(db *mongo.Database) *Store {
	return &Store{coll: db.Collection(CredentialsCollection)}
}

// Load implements domain.CredentialStore.
func (s *Store) Load(ctx context.Context) (*domain.Credential, error) {
	var doc credentialDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": currentCredentialID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	cred := doc.Credential
	return &cred, nil
}

// Save implements domain.CredentialStore. The upsert replaces the whole
// document, so token and profile land together or not at all.
func (s *Store) Save(ctx context.Context, cred *domain.Credential) error {
	doc := credentialDoc{
		ID:         currentCredentialID,
		Credential: *cred,
		SavedAt:    time.Now(),
	}
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": currentCredentialID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Clear implements domain.CredentialStore.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": currentCredentialID}); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

var _ domain.CredentialStore = (*Store)(nil)
