// internal/shop/repository.go
//
// The Repository persists Shop documents (each embedding its Products and
// their Sizes) in a single Mongo collection, exposing the narrow
// read-modify-write surface a scrape driver needs. Every mutating call is
// serialized through a single mutex so that concurrent drivers never race
// on the same collection - the document store itself provides no
// cross-process locking, matching this system's single-process Non-goal.
package shop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valpere/shopwatch/internal/utils"
	"github.com/valpere/shopwatch/pkg/types"
)

// Repository is the shop store's read-modify-write contract.
type Repository interface {
	GetAll(ctx context.Context) ([]*types.Shop, error)
	SetAll(ctx context.Context, shops []*types.Shop) error
	Update(ctx context.Context, shop *types.Shop) error
	FindByUID(ctx context.Context, uid string) (*types.Shop, error)
	FindByName(ctx context.Context, name string) (*types.Shop, error)
	// UpdateFromProductURLs reconciles the persisted shop set against a
	// fresh product-URL list: new netlocs become new shops, new product
	// URLs are assigned to their shop, already-known products that are
	// still listed keep their state, products no longer listed are dropped,
	// and shops whose netloc no longer appears are deleted. See
	// ReconcileFromProductURLs for the grouping rule applied to the
	// incoming URLs.
	UpdateFromProductURLs(ctx context.Context, productURLs []string) ([]*types.Shop, error)
}

// MongoOptions configures the Mongo-backed Repository.
type MongoOptions struct {
	ConnectionString string
	Database         string
	Collection       string
	ConnectTimeout   time.Duration
}

// DefaultMongoOptions returns sane defaults for the shops collection.
func DefaultMongoOptions() MongoOptions {
	return MongoOptions{
		Database:       "shopwatch",
		Collection:     "shops",
		ConnectTimeout: 10 * time.Second,
	}
}

// MongoRepository is the Mongo-backed Repository implementation, grounded
// on the teacher's internal/output/mongodb.go connect/option shape but
// repurposed from an append-only output sink into a read-modify-write
// document store.
type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     utils.Logger
	mu         sync.Mutex
}

// NewMongoRepository connects to Mongo and returns a ready Repository.
func NewMongoRepository(ctx context.Context, opts MongoOptions, logger utils.Logger) (*MongoRepository, error) {
	if opts.ConnectionString == "" {
		return nil, utils.NewError(utils.ErrCodeMissingConfig, "mongo connection string is required").Build()
	}
	if opts.Database == "" || opts.Collection == "" {
		opts.Database = DefaultMongoOptions().Database
		opts.Collection = DefaultMongoOptions().Collection
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = DefaultMongoOptions().ConnectTimeout
	}
	if logger == nil {
		logger = utils.NewLogger()
	}

	connectCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(opts.ConnectionString))
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeDatabaseError, "connecting to mongo")
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeDatabaseError, "pinging mongo")
	}

	return &MongoRepository{
		client:     client,
		collection: client.Database(opts.Database).Collection(opts.Collection),
		logger:     utils.NewComponentLogger(logger, "shop-repository"),
	}, nil
}

// Close disconnects the underlying Mongo client.
func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// GetAll returns every persisted shop.
func (r *MongoRepository) GetAll(ctx context.Context) ([]*types.Shop, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeDatabaseError, "querying shops")
	}
	defer cursor.Close(ctx)

	var shops []*types.Shop
	if err := cursor.All(ctx, &shops); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeDatabaseError, "decoding shops")
	}
	return shops, nil
}

// SetAll replaces the entire shop collection with shops.
func (r *MongoRepository) SetAll(ctx context.Context, shops []*types.Shop) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return utils.WrapError(err, utils.ErrCodeDatabaseError, "clearing shops collection")
	}
	if len(shops) == 0 {
		return nil
	}

	docs := make([]interface{}, len(shops))
	for i, s := range shops {
		docs[i] = s
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return utils.WrapError(err, utils.ErrCodeDatabaseError, "inserting shops")
	}
	return nil
}

// Update upserts one shop, keyed by its uid.
func (r *MongoRepository) Update(ctx context.Context, shop *types.Shop) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"uid": shop.UID}, shop, opts)
	if err != nil {
		return utils.WrapError(err, utils.ErrCodeDatabaseError, fmt.Sprintf("updating shop %s", shop.UID))
	}
	return nil
}

// FindByUID returns the shop with the given uid, or nil if none exists.
func (r *MongoRepository) FindByUID(ctx context.Context, uid string) (*types.Shop, error) {
	return r.findOne(ctx, bson.M{"uid": uid})
}

// FindByName returns the first shop with the given name, or nil if none exists.
func (r *MongoRepository) FindByName(ctx context.Context, name string) (*types.Shop, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*types.Shop, error) {
	var shop types.Shop
	err := r.collection.FindOne(ctx, filter).Decode(&shop)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeDatabaseError, "finding shop")
	}
	return &shop, nil
}

// UpdateFromProductURLs reconciles the persisted shop set against a fresh
// product-URL list: new netlocs become new shops, new product URLs are
// assigned to their shop, a persisted product whose URL no longer appears
// is dropped, and a persisted shop whose netloc no longer appears at all
// is deleted outright - matching the original's "products all disappeared,
// shop is entirely removed from database" behavior.
func (r *MongoRepository) UpdateFromProductURLs(ctx context.Context, productURLs []string) ([]*types.Shop, error) {
	discovered, err := ReconcileFromProductURLs(productURLs)
	if err != nil {
		return nil, err
	}

	existing, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	result, upserts, deletes := mergeShopUpdate(existing, discovered)

	for _, s := range upserts {
		if err := r.Update(ctx, s); err != nil {
			return nil, err
		}
	}
	for _, s := range deletes {
		if err := r.deleteByUID(ctx, s.UID); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// mergeShopUpdate is the pure reconciliation step UpdateFromProductURLs
// wraps with Mongo I/O. discovered is the fresh candidate shop set built by
// ReconcileFromProductURLs; existing is the persisted shop set. It returns
// the final shop per discovered netloc (result), the subset of those that
// actually changed and need writing (upserts), and the persisted shops
// whose netloc is absent from discovered entirely (deletes).
func mergeShopUpdate(existing, discovered []*types.Shop) (result, upserts, deletes []*types.Shop) {
	byNetloc := map[string]*types.Shop{}
	for _, s := range existing {
		if netloc, err := s.Netloc(); err == nil {
			byNetloc[netloc] = s
		}
	}

	keep := map[string]bool{}
	for _, candidate := range discovered {
		netloc, err := candidate.Netloc()
		if err != nil {
			continue
		}
		keep[netloc] = true

		current, ok := byNetloc[netloc]
		if !ok {
			result = append(result, candidate)
			upserts = append(upserts, candidate)
			continue
		}

		wanted := map[string]bool{}
		for _, p := range candidate.Products {
			wanted[p.URL] = true
		}

		changed := false
		var survivors []*types.Product
		for _, p := range current.Products {
			if wanted[p.URL] {
				survivors = append(survivors, p)
			} else {
				changed = true
			}
		}
		current.Products = survivors

		for _, p := range candidate.Products {
			before := len(current.Products)
			current.AddProduct(p)
			if len(current.Products) != before {
				changed = true
			}
		}

		if changed {
			upserts = append(upserts, current)
		}
		result = append(result, current)
	}

	for netloc, s := range byNetloc {
		if !keep[netloc] {
			deletes = append(deletes, s)
		}
	}
	return result, upserts, deletes
}

func (r *MongoRepository) deleteByUID(ctx context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"uid": uid}); err != nil {
		return utils.WrapError(err, utils.ErrCodeDatabaseError, fmt.Sprintf("deleting shop %s", uid))
	}
	return nil
}
