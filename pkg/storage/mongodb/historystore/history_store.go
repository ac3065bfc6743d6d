/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package historystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trustbloc/vcwallet/pkg/account"
	"github.com/trustbloc/vcwallet/pkg/storage"
	"github.com/trustbloc/vcwallet/pkg/storage/mongodb"
)

const (
	idTokenSharingCollection    = "id_token_sharing_history"
	credentialSharingCollection = "credential_sharing_history"

	rpField        = "rp"
	createdAtField = "createdAt"
)

type idTokenDocument struct {
	RP           string    `bson:"rp"`
	RPName       string    `bson:"rpName,omitempty"`
	AccountIndex int       `bson:"accountIndex"`
	UseCase      string    `bson:"useCase"`
	Thumbprint   string    `bson:"thumbprint"`
	CreatedAt    time.Time `bson:"createdAt"`
}

type credentialDocument struct {
	RP           string          `bson:"rp"`
	RPName       string          `bson:"rpName,omitempty"`
	LogoURI      string          `bson:"logoUri,omitempty"`
	PolicyURI    string          `bson:"policyUri,omitempty"`
	AccountIndex int             `bson:"accountIndex"`
	CredentialID string          `bson:"credentialId"`
	Format       string          `bson:"format"`
	Types        []string        `bson:"types,omitempty"`
	Purpose      string          `bson:"purpose,omitempty"`
	Claims       []claimDocument `bson:"claims,omitempty"`
	CreatedAt    time.Time       `bson:"createdAt"`
}

// claimDocument keeps the claim value as JSON text; disclosed values may hold keys MongoDB rejects.
type claimDocument struct {
	Name  string `bson:"name"`
	Value string `bson:"value"`
}

// Store manages sharing history in MongoDB.
type Store struct {
	mongoClient *mongodb.Client
}

// NewStore creates Store.
func NewStore(mongoClient *mongodb.Client) *Store {
	return &Store{mongoClient: mongoClient}
}

func (s *Store) SaveIDTokenSharing(ctx context.Context, rec *storage.IDTokenSharing) error {
	if rec == nil {
		return errors.New("save id token sharing: missing record")
	}

	doc := &idTokenDocument{
		RP:           rec.RP,
		RPName:       rec.RPName,
		AccountIndex: rec.AccountIndex,
		UseCase:      string(rec.UseCase),
		Thumbprint:   rec.Thumbprint,
		CreatedAt:    rec.CreatedAt.UTC(),
	}

	if _, err := s.mongoClient.Collection(idTokenSharingCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert id token sharing: %w", err)
	}

	return nil
}

func (s *Store) SaveCredentialSharing(ctx context.Context, rec *storage.CredentialSharing) error {
	if rec == nil {
		return errors.New("save credential sharing: missing record")
	}

	doc := &credentialDocument{
		RP:           rec.RP,
		RPName:       rec.RPName,
		LogoURI:      rec.LogoURI,
		PolicyURI:    rec.PolicyURI,
		AccountIndex: rec.AccountIndex,
		CredentialID: rec.CredentialID,
		Format:       rec.Format,
		Types:        rec.Types,
		Purpose:      rec.Purpose,
		CreatedAt:    rec.CreatedAt.UTC(),
	}

	for _, c := range rec.Claims {
		value, err := json.Marshal(c.Value)
		if err != nil {
			return fmt.Errorf("encode claim %s: %w", c.Name, err)
		}

		doc.Claims = append(doc.Claims, claimDocument{Name: c.Name, Value: string(value)})
	}

	if _, err := s.mongoClient.Collection(credentialSharingCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert credential sharing: %w", err)
	}

	return nil
}

func (s *Store) IDTokenSharings(ctx context.Context, rp string) ([]*storage.IDTokenSharing, error) {
	var docs []idTokenDocument

	if err := s.find(ctx, idTokenSharingCollection, rp, &docs); err != nil {
		return nil, fmt.Errorf("find id token sharing history: %w", err)
	}

	out := make([]*storage.IDTokenSharing, 0, len(docs))

	for _, d := range docs {
		out = append(out, &storage.IDTokenSharing{
			RP:           d.RP,
			RPName:       d.RPName,
			AccountIndex: d.AccountIndex,
			UseCase:      account.UseCase(d.UseCase),
			Thumbprint:   d.Thumbprint,
			CreatedAt:    d.CreatedAt,
		})
	}

	return out, nil
}

func (s *Store) CredentialSharings(ctx context.Context, rp string) ([]*storage.CredentialSharing, error) {
	var docs []credentialDocument

	if err := s.find(ctx, credentialSharingCollection, rp, &docs); err != nil {
		return nil, fmt.Errorf("find credential sharing history: %w", err)
	}

	out := make([]*storage.CredentialSharing, 0, len(docs))

	for _, d := range docs {
		rec := &storage.CredentialSharing{
			RP:           d.RP,
			RPName:       d.RPName,
			LogoURI:      d.LogoURI,
			PolicyURI:    d.PolicyURI,
			AccountIndex: d.AccountIndex,
			CredentialID: d.CredentialID,
			Format:       d.Format,
			Types:        d.Types,
			Purpose:      d.Purpose,
			CreatedAt:    d.CreatedAt,
		}

		for _, c := range d.Claims {
			var value interface{}

			if err := json.Unmarshal([]byte(c.Value), &value); err != nil {
				return nil, fmt.Errorf("decode claim %s: %w", c.Name, err)
			}

			rec.Claims = append(rec.Claims, storage.SharedClaim{Name: c.Name, Value: value})
		}

		out = append(out, rec)
	}

	return out, nil
}

func (s *Store) find(ctx context.Context, collection, rp string, docs interface{}) error {
	filter := bson.D{}
	if rp != "" {
		filter = bson.D{{Key: rpField, Value: rp}}
	}

	cursor, err := s.mongoClient.Collection(collection).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: createdAtField, Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return err
	}

	defer func() {
		_ = cursor.Close(ctx)
	}()

	return cursor.All(ctx, docs)
}

var _ storage.HistoryStore = (*Store)(nil)
