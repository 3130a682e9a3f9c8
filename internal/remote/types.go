package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"famtree/pkg/family"
)

// TreeID is the server-assigned tree identifier. Servers have been seen to
// send it both as a JSON number and as a string.
type TreeID int64

// UnmarshalJSON accepts 42, "42" and null.
func (id *TreeID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*id = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("tree id %q: %w", s, err)
		}
		*id = TreeID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("tree id %s: %w", b, err)
	}
	*id = TreeID(n)
	return nil
}

// SaveRequest is the body posted to the save endpoint. A nil TreeID creates
// a new tree; otherwise the server upserts by id.
type SaveRequest struct {
	TreeID    *int64        `json:"tree_id"`
	UserEmail string        `json:"user_email"`
	Title     string        `json:"title"`
	Nodes     []family.Node `json:"nodes"`
	Edges     []family.Edge `json:"edges"`
}

// LoadedTree is a tree fetched from the load endpoint.
type LoadedTree struct {
	TreeID      int64
	Title       string
	Description string
	Tree        family.Tree
	CreatedAt   string
	UpdatedAt   string
}

// TreeSummary is one row of the list endpoint.
type TreeSummary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
	NodesCount int    `json:"nodesCount"`
}

// User is the account returned by the auth endpoint.
type User struct {
	ID          int64  `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

// Session is a successful login or registration.
type Session struct {
	Token string
	User  User
}

type loadResponse struct {
	TreeID      TreeID        `json:"tree_id"`
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	Nodes       []family.Node `json:"nodes"`
	Edges       []family.Edge `json:"edges"`
	CreatedAt   *string       `json:"created_at"`
	UpdatedAt   *string       `json:"updated_at"`
}

// rawSummary covers both the camelCase and snake_case list shapes.
type rawSummary struct {
	ID           TreeID  `json:"id"`
	Name         string  `json:"name"`
	Title        string  `json:"title"`
	CreatedAt    *string `json:"createdAt"`
	CreatedAtAlt *string `json:"created_at"`
	UpdatedAt    *string `json:"updatedAt"`
	UpdatedAtAlt *string `json:"updated_at"`
	NodesCount   *int    `json:"nodesCount"`
	PersonsCount *int    `json:"persons_count"`
}

func (r rawSummary) summary() TreeSummary {
	s := TreeSummary{
		ID:        int64(r.ID),
		Name:      firstNonEmpty(r.Name, r.Title),
		CreatedAt: firstNonEmpty(deref(r.CreatedAt), deref(r.CreatedAtAlt)),
		UpdatedAt: firstNonEmpty(deref(r.UpdatedAt), deref(r.UpdatedAtAlt)),
	}
	switch {
	case r.NodesCount != nil:
		s.NodesCount = *r.NodesCount
	case r.PersonsCount != nil:
		s.NodesCount = *r.PersonsCount
	}
	return s
}

func decodeSummaries(body []byte) ([]TreeSummary, error) {
	body = bytes.TrimSpace(body)
	var raws []rawSummary
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &raws); err != nil {
			return nil, err
		}
	} else {
		var wrapped struct {
			Trees []rawSummary `json:"trees"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, err
		}
		raws = wrapped.Trees
	}
	out := make([]TreeSummary, 0, len(raws))
	for _, r := range raws {
		out = append(out, r.summary())
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
