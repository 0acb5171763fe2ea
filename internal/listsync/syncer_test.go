package listsync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smogalia/list-gift/internal/domain"
)

func noPoll() Options {
	return Options{LoadTimeout: time.Second}
}

// waitFor reads updates until cond holds.
func waitFor(t *testing.T, s *Syncer, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-s.Updates():
			require.True(t, ok, "updates closed")
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("condition not reached")
		}
	}
}

func reserved(id string) func(Snapshot) bool {
	return func(s Snapshot) bool {
		it, ok := s.Item(id)
		return ok && it.Reserved && !s.Optimistic
	}
}

func TestSyncer_LoadPublishesSnapshot(t *testing.T) {
	s := NewSyncer(fixture(), nil, owner, "w1", noPoll())
	defer s.Close()

	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Seq)

	got := <-s.Updates()
	assert.Equal(t, snap.Items, got.Items)
	assert.False(t, got.Optimistic)
}

func TestSyncer_ReloadsOnChange(t *testing.T) {
	g := fixture()
	hub := NewHub(0, nil)
	s := NewSyncer(g, hub, visitor, "w1", noPoll())
	defer s.Close()

	_, err := s.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	g.reserve("b", visitor.UserID)
	hub.Publish(domain.NewChange(domain.TableItems, domain.OpUpdate, "b", "w1"))

	snap := waitFor(t, s, reserved("b"))
	b, _ := snap.Item("b")
	require.NotNil(t, b.Reservation)
	assert.Equal(t, visitor.UserID, b.Reservation.ReservedBy)
}

func TestSyncer_StartCatchesUpOnMissedChange(t *testing.T) {
	g := fixture()
	hub := NewHub(0, nil)
	s := NewSyncer(g, hub, owner, "w1", noPoll())
	defer s.Close()

	_, err := s.Load(context.Background())
	require.NoError(t, err)
	<-s.Updates()

	// Nobody is subscribed yet, so this change is lost to the hub.
	g.reserve("a", visitor.UserID)
	hub.Publish(domain.NewReservationChange(domain.OpInsert, "r-a", "a", "w1", visitor.UserID))

	require.NoError(t, s.Start(context.Background()))

	snap := waitFor(t, s, reserved("a"))
	assert.Equal(t, uint64(2), snap.Seq)
}

func TestSyncer_StartBeforeLoadSkipsCatchUp(t *testing.T) {
	g := fixture()
	hub := NewHub(0, nil)
	s := NewSyncer(g, hub, owner, "w1", noPoll())
	defer s.Close()

	require.NoError(t, s.Start(context.Background()))
	_, err := s.Load(context.Background())
	require.NoError(t, err)
	<-s.Updates()

	select {
	case snap := <-s.Updates():
		t.Fatalf("unexpected update %+v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSyncer_IgnoresOtherWishlists(t *testing.T) {
	g := fixture()
	hub := NewHub(0, nil)
	s := NewSyncer(g, hub, owner, "w1", noPoll())
	defer s.Close()
	require.NoError(t, s.Start(context.Background()))
	_, err := s.Load(context.Background())
	require.NoError(t, err)
	<-s.Updates()

	hub.Publish(domain.NewChange(domain.TableItems, domain.OpInsert, "x", "private"))

	select {
	case snap := <-s.Updates():
		t.Fatalf("unexpected update %+v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSyncer_PollsWithoutEvents(t *testing.T) {
	g := fixture()
	s := NewSyncer(g, NewHub(0, nil), owner, "w1", Options{PollInterval: 20 * time.Millisecond})
	defer s.Close()
	_, err := s.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	g.reserve("a", visitor.UserID)

	snap := waitFor(t, s, reserved("a"))
	a, _ := snap.Item("a")
	assert.Nil(t, a.Reservation)
}

func TestSyncer_ReservationHintPatchesBeforeReload(t *testing.T) {
	g := fixture()
	hub := NewHub(0, nil)
	s := NewSyncer(g, hub, owner, "w1", noPoll())
	defer s.Close()
	_, err := s.Load(context.Background())
	require.NoError(t, err)
	<-s.Updates()

	require.NoError(t, s.Start(context.Background()))
	waitFor(t, s, func(snap Snapshot) bool { return snap.Seq == 2 })

	// Block the follow-up reload so the optimistic patch is observable.
	release := make(chan struct{})
	g.setBeforeLoad(func() { <-release })

	g.reserve("a", visitor.UserID)
	hub.Publish(domain.NewReservationChange(domain.OpInsert, "r-a", "a", "w1", visitor.UserID))

	patched := waitFor(t, s, func(snap Snapshot) bool { return snap.Optimistic })
	a, _ := patched.Item("a")
	assert.True(t, a.Reserved)
	assert.Nil(t, a.Reservation, "owner view must not carry reservation detail")

	close(release)
	final := waitFor(t, s, reserved("a"))
	assert.False(t, final.Optimistic)
}

func TestSyncer_StaleLoadIsDiscarded(t *testing.T) {
	g := fixture()
	s := NewSyncer(g, nil, owner, "w1", noPoll())
	defer s.Close()

	// First load blocks after being issued; a second load overtakes it.
	gate := make(chan struct{})
	entered := make(chan struct{})
	var calls atomic.Int32
	g.setBeforeLoad(func() {
		if calls.Add(1) == 1 {
			close(entered)
			<-gate
		}
	})

	var first Snapshot
	done := make(chan struct{})
	go func() {
		defer close(done)
		first, _ = s.Load(context.Background())
	}()
	<-entered

	g.reserve("a", visitor.UserID)
	second, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Seq)

	g.unreserve("a")
	close(gate)
	<-done

	assert.Equal(t, uint64(1), first.Seq)
	current, ok := s.Snapshot()
	require.True(t, ok)
	assert.Equal(t, uint64(2), current.Seq)
	a, _ := current.Item("a")
	assert.True(t, a.Reserved, "older load must not overwrite newer state")
}

func TestSyncer_OptimisticMutationsReplacedByLoad(t *testing.T) {
	g := fixture()
	s := NewSyncer(g, nil, owner, "w1", noPoll())
	defer s.Close()

	assert.ErrorIs(t, s.AddItem(domain.Item{ID: "c"}), ErrNotLoaded)

	_, err := s.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.AddItem(domain.Item{ID: "c", WishlistID: "w1", Title: "C"}))
	require.NoError(t, s.UpdateItem(domain.Item{ID: "a", WishlistID: "w1", Title: "A2"}))
	require.NoError(t, s.DeleteItem("b"))
	require.NoError(t, s.MarkReserved("c", true, &domain.Reservation{ID: "r"}))

	snap, _ := s.Snapshot()
	assert.True(t, snap.Optimistic)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "A2", snap.Items[0].Title)
	c, _ := snap.Item("c")
	assert.True(t, c.Reserved)
	assert.Nil(t, c.Reservation, "owner never gets reservation detail")

	_, err = s.Load(context.Background())
	require.NoError(t, err)
	snap, _ = s.Snapshot()
	assert.False(t, snap.Optimistic)
	assert.Len(t, snap.Items, 2)
	_, hasC := snap.Item("c")
	assert.False(t, hasC)
	a, _ := snap.Item("a")
	assert.Equal(t, "A", a.Title)
}

func TestSyncer_UpdatesKeepsLatestOnly(t *testing.T) {
	s := NewSyncer(fixture(), nil, visitor, "w1", noPoll())
	defer s.Close()
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.MarkReserved("a", true, &domain.Reservation{ID: "mine"}))
	require.NoError(t, s.MarkReserved("b", true, nil))

	snap := <-s.Updates()
	a, _ := snap.Item("a")
	b, _ := snap.Item("b")
	assert.True(t, a.Reserved)
	require.NotNil(t, a.Reservation)
	assert.Equal(t, "mine", a.Reservation.ID)
	assert.True(t, b.Reserved)
	assert.Empty(t, s.Updates())
}

func TestSyncer_DeletedWishlistMarkedGone(t *testing.T) {
	g := fixture()
	hub := NewHub(0, nil)
	s := NewSyncer(g, hub, owner, "w1", noPoll())
	defer s.Close()
	_, err := s.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	g.deleteWishlist("w1")
	hub.Publish(domain.NewChange(domain.TableWishlists, domain.OpDelete, "w1", "w1"))

	snap := waitFor(t, s, func(s Snapshot) bool { return s.Gone })
	assert.Empty(t, snap.Items)
}

func TestSyncer_CloseReleasesEverything(t *testing.T) {
	g := fixture()
	hub := NewHub(0, nil)
	s := NewSyncer(g, hub, owner, "w1", DefaultOptions())
	_, err := s.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, 1, hub.Len())

	s.Close()
	s.Close()

	assert.Equal(t, 0, hub.Len())
	for range s.Updates() {
	}
	assert.NoError(t, s.AddItem(domain.Item{ID: "late"}), "mutations after close are no-ops")

	// A load finishing after close does not resurrect state.
	_, err = s.Load(context.Background())
	require.NoError(t, err)
	assert.Error(t, s.Start(context.Background()))
}

func TestSyncer_ContextCancelCloses(t *testing.T) {
	hub := NewHub(0, nil)
	s := NewSyncer(fixture(), hub, owner, "w1", noPoll())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	cancel()

	assert.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestSyncer_StartWithoutHub(t *testing.T) {
	s := NewSyncer(fixture(), nil, owner, "w1", noPoll())
	defer s.Close()
	assert.Error(t, s.Start(context.Background()))
}
