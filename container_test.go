package session_test

import (
	"sync"
	"testing"

	session "github.com/adaptivelearn/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerStartsLoggedOutWithoutInitialState(t *testing.T) {
	c := session.NewContainer(nil)
	assert.Equal(t, session.LoggedOutState(), c.State())
}

func TestContainerDispatchAppliesReducer(t *testing.T) {
	c := session.NewContainer(nil)

	next := c.Dispatch(session.LoginSuccess(session.AuthTokens{Access: "A", Refresh: "R"}))

	assert.Same(t, next, c.State())
	assert.True(t, c.State().Authenticated())
}

func TestContainerNotifiesSubscribers(t *testing.T) {
	c := session.NewContainer(nil)

	var seen []*session.AuthState
	unsubscribe := c.Subscribe(func(prev, next *session.AuthState) {
		seen = append(seen, next)
	})

	c.Dispatch(session.LoginSuccess(session.AuthTokens{Access: "A", Refresh: "R"}))
	c.Dispatch(session.Action{Type: "IGNORED"})
	unsubscribe()
	c.Dispatch(session.Logout())

	require.Len(t, seen, 1, "unknown actions do not notify and unsubscribed listeners stay silent")
	assert.Equal(t, "A", seen[0].AuthTokens.Access)
}

func TestContainerSerializesConcurrentDispatch(t *testing.T) {
	c := session.NewContainer(nil)

	var mu sync.Mutex
	transitions := 0
	c.Subscribe(func(prev, next *session.AuthState) {
		mu.Lock()
		transitions++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Dispatch(session.AuthFail("boom"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, transitions)
	assert.Equal(t, "boom", c.State().Error)
}

func TestContainerIsolation(t *testing.T) {
	a := session.NewContainer(nil)
	b := session.NewContainer(nil)

	a.Dispatch(session.LoginSuccess(session.AuthTokens{Access: "A", Refresh: "R"}))

	assert.True(t, a.State().Authenticated())
	assert.False(t, b.State().Authenticated())
}
