package auth

// Known OAuth scopes used by the suggestion service.
const (
	ScopeSuggestionsRead = "suggestions:read"
	ScopeActivitiesRead  = "activities:read"
)
