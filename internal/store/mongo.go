package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tripwatch/travel-safety-api/internal/travel"
)

const (
	recordsCollection   = "travel_records"
	countryCollection   = "country_info"
	emergencyCollection = "emergency_info"
	currencyCollection  = "currency_rates"

	recordExpirySeconds   = 3600  // 1 hour
	currencyExpirySeconds = 86400 // 24 hours
)

// MongoStore implements the persistence contracts on a MongoDB database.
// Record and currency expiry are delegated to TTL indexes.
type MongoStore struct {
	db *mongo.Database
}

// Connect dials MongoDB, verifies the connection, and ensures indexes.
func Connect(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &MongoStore{db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(recordsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "uniqueKey", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(recordExpirySeconds),
		},
	})
	if err != nil {
		return fmt.Errorf("record indexes: %w", err)
	}

	_, err = s.db.Collection(countryCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("country index: %w", err)
	}

	_, err = s.db.Collection(emergencyCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "countryName", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("emergency index: %w", err)
	}

	_, err = s.db.Collection(currencyCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(currencyExpirySeconds),
	})
	if err != nil {
		return fmt.Errorf("currency index: %w", err)
	}
	return nil
}

// FindByKey returns the record for a bucket key, or nil on a miss.
func (s *MongoStore) FindByKey(ctx context.Context, uniqueKey string) (*travel.Record, error) {
	var rec travel.Record
	err := s.db.Collection(recordsCollection).
		FindOne(ctx, bson.M{"uniqueKey": uniqueKey}).
		Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Upsert writes the record keyed by UniqueKey. Concurrent writers for the
// same key resolve last-writer-wins.
func (s *MongoStore) Upsert(ctx context.Context, rec *travel.Record) error {
	_, err := s.db.Collection(recordsCollection).UpdateOne(ctx,
		bson.M{"uniqueKey": rec.UniqueKey},
		bson.M{"$set": rec},
		options.Update().SetUpsert(true),
	)
	return err
}

// DeleteOthers removes superseded records for the same place. The
// case-insensitive match deliberately does not escape regex metacharacters
// in place names, mirroring the established cleanup semantics.
func (s *MongoStore) DeleteOthers(ctx context.Context, city, country, keepKey string) (int64, error) {
	res, err := s.db.Collection(recordsCollection).DeleteMany(ctx, bson.M{
		"location.city":    bson.M{"$regex": "^" + city + "$", "$options": "i"},
		"location.country": bson.M{"$regex": "^" + country + "$", "$options": "i"},
		"uniqueKey":        bson.M{"$ne": keepKey},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) FindCountry(ctx context.Context, name, code string) (*travel.CountryInfo, error) {
	filter := bson.M{"name": bson.M{"$regex": "^" + name + "$", "$options": "i"}}
	if code != "" {
		filter = bson.M{"alpha2Code": strings.ToUpper(code)}
	}

	var info travel.CountryInfo
	err := s.db.Collection(countryCollection).FindOne(ctx, filter).Decode(&info)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *MongoStore) UpsertCountries(ctx context.Context, infos []travel.CountryInfo) error {
	if len(infos) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(infos))
	for _, info := range infos {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"name": info.Name}).
			SetUpdate(bson.M{"$set": info}).
			SetUpsert(true))
	}
	_, err := s.db.Collection(countryCollection).BulkWrite(ctx, models,
		options.BulkWrite().SetOrdered(false))
	return err
}

func (s *MongoStore) FindEmergency(ctx context.Context, name, code string) (*travel.EmergencyInfo, error) {
	filter := bson.M{"countryName": bson.M{"$regex": "^" + name + "$", "$options": "i"}}
	if code != "" {
		filter = bson.M{"isoCode": strings.ToUpper(code)}
	}

	var info travel.EmergencyInfo
	err := s.db.Collection(emergencyCollection).FindOne(ctx, filter).Decode(&info)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *MongoStore) UpsertEmergencies(ctx context.Context, infos []travel.EmergencyInfo) error {
	if len(infos) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(infos))
	for _, info := range infos {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"countryName": info.CountryName}).
			SetUpdate(bson.M{"$set": info}).
			SetUpsert(true))
	}
	_, err := s.db.Collection(emergencyCollection).BulkWrite(ctx, models,
		options.BulkWrite().SetOrdered(false))
	return err
}

func (s *MongoStore) LatestCurrency(ctx context.Context) (*travel.CurrencyRates, error) {
	var rates travel.CurrencyRates
	err := s.db.Collection(currencyCollection).
		FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})).
		Decode(&rates)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rates, nil
}

func (s *MongoStore) InsertCurrency(ctx context.Context, rates travel.CurrencyRates) error {
	if rates.CreatedAt.IsZero() {
		rates.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Collection(currencyCollection).InsertOne(ctx, rates)
	return err
}
