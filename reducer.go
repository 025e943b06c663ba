package session

// ActionType names an auth state transition.
type ActionType string

const (
	ActionLoginSuccess    ActionType = "LOGIN_SUCCESS"
	ActionRegisterSuccess ActionType = "REGISTER_SUCCESS"
	ActionLogout          ActionType = "LOGOUT"
	ActionSetUser         ActionType = "SET_USER"
	ActionAuthFail        ActionType = "AUTH_FAIL"
	ActionFetchUserFail   ActionType = "FETCH_USER_FAIL"
)

// Action is a dispatched transition. Payload type depends on Type:
// *AuthTokens or AuthTokens for LOGIN_SUCCESS, UserProfile for SET_USER and
// an ErrorPayload for the failure actions.
type Action struct {
	Type    ActionType
	Payload any
}

func LoginSuccess(tokens AuthTokens) Action {
	return Action{Type: ActionLoginSuccess, Payload: tokens}
}

func RegisterSuccess() Action {
	return Action{Type: ActionRegisterSuccess}
}

func Logout() Action {
	return Action{Type: ActionLogout}
}

func SetUser(user UserProfile) Action {
	return Action{Type: ActionSetUser, Payload: user}
}

func AuthFail(payload ErrorPayload) Action {
	return Action{Type: ActionAuthFail, Payload: payload}
}

func FetchUserFail(payload ErrorPayload) Action {
	return Action{Type: ActionFetchUserFail, Payload: payload}
}

type reduceFunc func(state *AuthState, action Action) *AuthState

var transitions = map[ActionType]reduceFunc{
	ActionLoginSuccess: func(state *AuthState, action Action) *AuthState {
		next := state.clone()
		next.AuthTokens = tokensPayload(action.Payload)
		next.Error = nil
		return next
	},
	ActionRegisterSuccess: func(state *AuthState, _ Action) *AuthState {
		next := state.clone()
		next.Error = nil
		return next
	},
	ActionLogout: func(*AuthState, Action) *AuthState {
		return LoggedOutState()
	},
	ActionSetUser: func(state *AuthState, action Action) *AuthState {
		next := state.clone()
		next.User, _ = action.Payload.(UserProfile)
		next.Error = nil
		return next
	},
	ActionAuthFail:      failTransition,
	ActionFetchUserFail: failTransition,
}

func failTransition(state *AuthState, action Action) *AuthState {
	next := state.clone()
	next.Error = action.Payload
	return next
}

// Reduce applies action to state and returns the next state. It never
// mutates state; unknown actions return the same pointer.
func Reduce(state *AuthState, action Action) *AuthState {
	if state == nil {
		state = LoggedOutState()
	}

	fn, ok := transitions[action.Type]
	if !ok {
		return state
	}
	return fn(state, action)
}

func (s *AuthState) clone() *AuthState {
	next := *s
	return &next
}

func tokensPayload(payload any) *AuthTokens {
	switch t := payload.(type) {
	case AuthTokens:
		return &t
	case *AuthTokens:
		if t == nil {
			return nil
		}
		cp := *t
		return &cp
	}
	return nil
}
