package ws

import (
	"encoding/json"
	"testing"

	"dubnacoin/internal/domain"
)

func TestHub_PublishReachesOnlyThatPlayer(t *testing.T) {
	h := NewHub()
	a1 := NewClient(1, nil, h)
	a2 := NewClient(1, nil, h)
	b := NewClient(2, nil, h)
	h.Register(a1)
	h.Register(a2)
	h.Register(b)

	if got := h.Publish(1, []byte("hi")); got != 2 {
		t.Fatalf("delivered = %d; want 2", got)
	}
	if len(a1.Send) != 1 || len(a2.Send) != 1 || len(b.Send) != 0 {
		t.Fatalf("unexpected queue lengths %d %d %d", len(a1.Send), len(a2.Send), len(b.Send))
	}
	if h.Publish(3, []byte("nobody")) != 0 {
		t.Fatalf("publish to unknown player delivered")
	}
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	h := NewHub()
	c := NewClient(1, nil, h)
	h.Register(c)

	h.Unregister(c)
	h.Unregister(c)

	if h.Connected(1) != 0 {
		t.Fatalf("client still connected")
	}
	if _, ok := <-c.Send; ok {
		t.Fatalf("send channel not closed")
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := NewHub()
	slow := NewClient(1, nil, h)
	h.Register(slow)

	for i := 0; i < sendBuffer; i++ {
		h.Publish(1, []byte("x"))
	}
	if h.Connected(1) != 1 {
		t.Fatalf("client dropped before its buffer filled")
	}

	if got := h.Publish(1, []byte("overflow")); got != 0 {
		t.Fatalf("delivered = %d; want 0", got)
	}
	if h.Connected(1) != 0 {
		t.Fatalf("slow client not dropped")
	}
	if h.send(slow, []byte("late")) {
		t.Fatalf("send to dropped client succeeded")
	}
}

func TestHub_NotifyAccrual(t *testing.T) {
	h := NewHub()
	c := NewClient(7, nil, h)
	h.Register(c)

	h.NotifyAccrual(domain.Accrual{PlayerID: 7, Reward: 12, Coins: 15})

	var got AccrualPayload
	if err := json.Unmarshal(<-c.Send, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != MsgAccrual || got.Coins != 15 || got.Reward != 12 {
		t.Fatalf("payload = %+v", got)
	}
}

func TestNewClient_UniqueIDs(t *testing.T) {
	h := NewHub()
	if NewClient(1, nil, h).ID == NewClient(1, nil, h).ID {
		t.Fatalf("client ids collide")
	}
}
