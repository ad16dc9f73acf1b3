package presence

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// disconnectScript removes a socket and, only if it is still the user's
// current socket, the user entry. Returns the stored entry JSON when the
// user went offline, "" otherwise.
var disconnectScript = redis.NewScript(`
local userID = redis.call('HGET', KEYS[2], ARGV[1])
if not userID then
  return false
end
redis.call('HDEL', KEYS[2], ARGV[1])
local raw = redis.call('HGET', KEYS[1], userID)
if not raw then
  return {userID, ''}
end
local entry = cjson.decode(raw)
if entry['socket_id'] ~= ARGV[1] then
  return {userID, ''}
end
redis.call('HDEL', KEYS[1], userID)
return {userID, raw}
`)

type redisRegistry struct {
	client     redis.UniversalClient
	usersKey   string
	socketsKey string
	now        func() time.Time
}

// NewRedisRegistry shares presence across every instance using the same
// Redis and prefix.
func NewRedisRegistry(client redis.UniversalClient, prefix string) Registry {
	if prefix == "" {
		prefix = "barterhub"
	}
	return &redisRegistry{
		client:     client,
		usersKey:   prefix + ":presence:users",
		socketsKey: prefix + ":presence:sockets",
		now:        time.Now,
	}
}

func (r *redisRegistry) Connect(ctx context.Context, userID, socketID string) (Entry, error) {
	entry := Entry{UserID: userID, SocketID: socketID, IsOnline: true, LastSeen: r.now().UTC()}
	raw, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.usersKey, userID, raw)
		pipe.HSet(ctx, r.socketsKey, socketID, userID)
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (r *redisRegistry) Disconnect(ctx context.Context, socketID string) (Entry, bool, error) {
	res, err := disconnectScript.Run(ctx, r.client, []string{r.usersKey, r.socketsKey}, socketID).Slice()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	if len(res) != 2 {
		return Entry{}, false, nil
	}

	userID, _ := res[0].(string)
	raw, _ := res[1].(string)
	if raw == "" {
		return Entry{UserID: userID, SocketID: socketID}, false, nil
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return Entry{}, false, err
	}
	entry.IsOnline = false
	entry.LastSeen = r.now().UTC()
	return entry, true, nil
}

func (r *redisRegistry) Get(ctx context.Context, userID string) (Entry, bool, error) {
	raw, err := r.client.HGet(ctx, r.usersKey, userID).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (r *redisRegistry) OnlineUserIDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.HKeys(ctx, r.usersKey).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}
