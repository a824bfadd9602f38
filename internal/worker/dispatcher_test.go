package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxv/vpn_bot_server/config"
	"github.com/nyxv/vpn_bot_server/internal/pkg/queue"
	"github.com/nyxv/vpn_bot_server/internal/pkg/telegram"
)

type sentMessage struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func setupDispatcher(t *testing.T, chunkSize int) (*Dispatcher, *[]sentMessage) {
	t.Helper()

	var sent []sentMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg sentMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		sent = append(sent, msg)
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tg := telegram.NewClient(&config.TelegramConfig{BotToken: "test", APIBase: srv.URL})
	dispatcher := NewDispatcher(queue.NewQueue(client, "test:notifications"), tg, chunkSize)
	return dispatcher, &sent
}

func TestDeliver_SendsToAllRecipients(t *testing.T) {
	dispatcher, sent := setupDispatcher(t, 2)

	dispatcher.Deliver(context.Background(), &queue.NotificationMessage{
		Kind:    queue.KindAccessOpened,
		UserIDs: []int64{1, 2, 3, 4, 5},
	})

	require.Len(t, *sent, 5)
	for i, msg := range *sent {
		assert.Equal(t, int64(i+1), msg.ChatID)
		assert.Equal(t, notificationTexts[queue.KindAccessOpened], msg.Text)
	}
}

func TestDeliver_DropsUnknownKind(t *testing.T) {
	dispatcher, sent := setupDispatcher(t, 10)

	dispatcher.Deliver(context.Background(), &queue.NotificationMessage{
		Kind:    "mystery",
		UserIDs: []int64{1},
	})

	assert.Empty(t, *sent)
}

func TestDeliver_FailureDoesNotStopBatch(t *testing.T) {
	var sent []sentMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg sentMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		if msg.ChatID == 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		sent = append(sent, msg)
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tg := telegram.NewClient(&config.TelegramConfig{BotToken: "test", APIBase: srv.URL})
	dispatcher := NewDispatcher(queue.NewQueue(client, "test:notifications"), tg, 10)

	dispatcher.Deliver(context.Background(), &queue.NotificationMessage{
		Kind:    queue.KindAccessDenied,
		UserIDs: []int64{1, 2, 3},
	})

	require.Len(t, sent, 2)
	assert.Equal(t, int64(1), sent[0].ChatID)
	assert.Equal(t, int64(3), sent[1].ChatID)
}

func TestChunkUserIDs(t *testing.T) {
	tests := []struct {
		name string
		ids  []int64
		size int
		want [][]int64
	}{
		{"empty", nil, 3, nil},
		{"empty with zero size", nil, 0, nil},
		{"single chunk", []int64{1, 2}, 3, [][]int64{{1, 2}}},
		{"exact split", []int64{1, 2, 3, 4}, 2, [][]int64{{1, 2}, {3, 4}}},
		{"ragged tail", []int64{1, 2, 3, 4, 5}, 2, [][]int64{{1, 2}, {3, 4}, {5}}},
		{"zero size keeps one chunk", []int64{1, 2, 3}, 0, [][]int64{{1, 2, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chunkUserIDs(tt.ids, tt.size))
		})
	}
}
