package repository

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"barterhub/pkg/errors"
	"barterhub/pkg/logger"
)

const (
	usersCollection    = "users"
	listingsCollection = "listings"
	chatsCollection    = "chats"
	messagesCollection = "messages"
	mediaCollection    = "media"
)

func firestoreError(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return errors.NotFound(resource, err)
	}
	logger.Error("Firestore %s failed: %v", op, err)
	return errors.Internal("internal error, try again", err)
}

// getDocument loads a single document into dst.
func getDocument(ctx context.Context, ref *firestore.DocumentRef, resource string, dst interface{}) error {
	doc, err := ref.Get(ctx)
	if err != nil {
		return firestoreError("get "+ref.Path, resource, err)
	}
	if err := doc.DataTo(dst); err != nil {
		return errors.Internal("Failed to parse "+resource+" data", err)
	}
	return nil
}

// collect drains a query into typed values using decode.
func collect[T any](ctx context.Context, query firestore.Query, op string) ([]*T, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []*T
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, firestoreError(op, "", err)
		}
		var v T
		if err := doc.DataTo(&v); err != nil {
			logger.Warn("Firestore %s: skipping malformed document %s: %v", op, doc.Ref.ID, err)
			continue
		}
		out = append(out, &v)
	}
	return out, nil
}

// getAllByID fetches documents by id in one round trip; missing ids are
// skipped.
func getAllByID[T any](ctx context.Context, client *firestore.Client, collection string, ids []string, idOf func(*T) string) (map[string]*T, error) {
	out := make(map[string]*T, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, client.Collection(collection).Doc(id))
	}
	docs, err := client.GetAll(ctx, refs)
	if err != nil {
		return nil, firestoreError("getAll "+collection, collection, err)
	}
	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		var v T
		if err := doc.DataTo(&v); err != nil {
			continue
		}
		out[idOf(&v)] = &v
	}
	return out, nil
}

// paginate applies limit/offset to an already sorted slice.
func paginate[T any](items []*T, limit, offset int) []*T {
	if offset >= len(items) {
		return []*T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func sortDesc[T any](items []*T, key func(*T) int64) {
	sort.SliceStable(items, func(i, j int) bool { return key(items[i]) > key(items[j]) })
}
