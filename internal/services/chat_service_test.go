package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediation/internal/models"
	"mediation/internal/realtime"
)

func newChatFixture() (*ChatService, *realtime.Hub) {
	hub := realtime.NewHub()
	return NewChatService(newMemMessageRepo(), hub), hub
}

func TestChat_AppendValidation(t *testing.T) {
	svc, _ := newChatFixture()

	_, err := svc.Append("req-1", models.SenderClient, "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, err = svc.Append("req-1", models.Sender("robot"), "привет")
	require.ErrorIs(t, err, ErrUnknownSender)
}

func TestChat_ListOrdered(t *testing.T) {
	svc, _ := newChatFixture()

	for _, text := range []string{"первое", "второе", "третье"} {
		_, err := svc.Append("req-1", models.SenderClient, text)
		require.NoError(t, err)
	}
	_, err := svc.Append("req-2", models.SenderMediator, "чужое")
	require.NoError(t, err)

	list, err := svc.List("req-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "первое", list[0].Text)
	assert.Equal(t, "второе", list[1].Text)
	assert.Equal(t, "третье", list[2].Text)
	for i := 1; i < len(list); i++ {
		assert.True(t, !list[i].CreatedAt.Before(list[i-1].CreatedAt))
		assert.Greater(t, list[i].ID, list[i-1].ID)
	}
}

func TestChat_SubscriberGetsFullSnapshot(t *testing.T) {
	svc, _ := newChatFixture()

	sub := svc.Subscribe("req-1")
	defer sub.Cancel()

	_, err := svc.Append("req-1", models.SenderClient, "раз")
	require.NoError(t, err)

	select {
	case snapshot := <-sub.C:
		require.Len(t, snapshot, 1)
		assert.Equal(t, "раз", snapshot[0].Text)
	case <-time.After(time.Second):
		t.Fatal("snapshot not delivered")
	}

	_, err = svc.Append("req-1", models.SenderMediator, "два")
	require.NoError(t, err)

	select {
	case snapshot := <-sub.C:
		// каждый раз приходит полный список, не дельта
		require.Len(t, snapshot, 2)
		assert.Equal(t, "раз", snapshot[0].Text)
		assert.Equal(t, "два", snapshot[1].Text)
	case <-time.After(time.Second):
		t.Fatal("second snapshot not delivered")
	}
}

func TestChat_CancelStopsDelivery(t *testing.T) {
	svc, hub := newChatFixture()

	sub := svc.Subscribe("req-1")
	sub.Cancel()
	sub.Cancel() // повторная отмена безопасна

	assert.Equal(t, 0, hub.Subscribers("req-1"))

	_, err := svc.Append("req-1", models.SenderClient, "после отмены")
	require.NoError(t, err)

	// канал закрыт, доставок нет
	snapshot, ok := <-sub.C
	assert.False(t, ok)
	assert.Nil(t, snapshot)
}
