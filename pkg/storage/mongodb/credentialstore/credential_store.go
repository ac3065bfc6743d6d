/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credentialstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trustbloc/vcwallet/pkg/storage"
	"github.com/trustbloc/vcwallet/pkg/storage/mongodb"
)

const (
	collectionName = "credentials"
	createdAtField = "createdAt"
)

type mongoDocument struct {
	ID         string    `bson:"_id"`
	Format     string    `bson:"format"`
	Types      []string  `bson:"types,omitempty"`
	Raw        string    `bson:"raw"`
	Issuer     string    `bson:"issuer,omitempty"`
	IssuerName string    `bson:"issuerName,omitempty"`
	CreatedAt  time.Time `bson:"createdAt"`
}

// Store manages received credentials in MongoDB.
type Store struct {
	mongoClient *mongodb.Client
}

// NewStore creates Store.
func NewStore(mongoClient *mongodb.Client) *Store {
	return &Store{mongoClient: mongoClient}
}

func (s *Store) Save(ctx context.Context, cred *storage.Credential) error {
	if cred == nil || cred.ID == "" {
		return errors.New("save credential: missing id")
	}

	doc := toDocument(cred)

	_, err := s.mongoClient.Collection(collectionName).ReplaceOne(ctx,
		bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*storage.Credential, error) {
	var doc mongoDocument

	err := s.mongoClient.Collection(collectionName).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("credential %s: %w", id, storage.ErrDataNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("credential find failed: %w", err)
	}

	return fromDocument(&doc), nil
}

func (s *Store) GetAll(ctx context.Context) ([]*storage.Credential, error) {
	cursor, err := s.mongoClient.Collection(collectionName).Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: createdAtField, Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find credentials: %w", err)
	}

	defer func() {
		_ = cursor.Close(ctx)
	}()

	var docs []mongoDocument

	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}

	out := make([]*storage.Credential, 0, len(docs))
	for i := range docs {
		out = append(out, fromDocument(&docs[i]))
	}

	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.mongoClient.Collection(collectionName).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("credential %s: %w", id, storage.ErrDataNotFound)
	}

	return nil
}

func toDocument(cred *storage.Credential) *mongoDocument {
	return &mongoDocument{
		ID:         cred.ID,
		Format:     cred.Format,
		Types:      cred.Types,
		Raw:        cred.Raw,
		Issuer:     cred.Issuer,
		IssuerName: cred.IssuerName,
		CreatedAt:  cred.CreatedAt.UTC(),
	}
}

func fromDocument(doc *mongoDocument) *storage.Credential {
	return &storage.Credential{
		ID:         doc.ID,
		Format:     doc.Format,
		Types:      doc.Types,
		Raw:        doc.Raw,
		Issuer:     doc.Issuer,
		IssuerName: doc.IssuerName,
		CreatedAt:  doc.CreatedAt,
	}
}

var _ storage.CredentialStore = (*Store)(nil)
