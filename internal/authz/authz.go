// Package authz decides what an acting identity may do.
//
// Every check returns a Decision instead of writing a response, so the
// rules can be tested without HTTP and the handlers stay free of policy:
//
//	Allow          → run the operation
//	RedirectLogin  → anonymous; send them to the login page with ?next=
//	RedirectTo     → signed in but not permitted; send them to a read view
package authz

import (
	"net/url"
	"strings"
)

type Action int

const (
	ViewFeed Action = iota
	CreatePost
	Comment
	Follow
	Unfollow
	ViewFollowFeed
	EditPost
)

func (a Action) String() string {
	switch a {
	case ViewFeed:
		return "view_feed"
	case CreatePost:
		return "create_post"
	case Comment:
		return "comment"
	case Follow:
		return "follow"
	case Unfollow:
		return "unfollow"
	case ViewFollowFeed:
		return "view_follow_feed"
	case EditPost:
		return "edit_post"
	default:
		return "unknown"
	}
}

// Actor is the acting identity. The zero value is an anonymous visitor.
type Actor struct {
	UserID string
}

func (a Actor) Anonymous() bool {
	return a.UserID == ""
}

// Resource is the thing an action targets. OwnerID is only consulted for
// EditPost.
type Resource struct {
	OwnerID string
}

// Can reports whether actor may perform action on res.
func Can(actor Actor, action Action, res Resource) bool {
	switch action {
	case ViewFeed:
		return true
	case CreatePost, Comment, Follow, Unfollow, ViewFollowFeed:
		return !actor.Anonymous()
	case EditPost:
		return !actor.Anonymous() && actor.UserID == res.OwnerID
	default:
		return false
	}
}

type Kind int

const (
	Allow Kind = iota
	RedirectLogin
	RedirectTo
)

// Decision is the outcome of a gate check. Location is set for the two
// redirect kinds.
type Decision struct {
	Kind     Kind
	Location string
}

func (d Decision) Allowed() bool {
	return d.Kind == Allow
}

// Gate turns Can into redirects.
type Gate struct {
	loginURL string
}

// NewGate returns a gate that sends anonymous visitors to loginURL.
func NewGate(loginURL string) *Gate {
	if loginURL == "" {
		loginURL = "/auth/login/"
	}
	return &Gate{loginURL: loginURL}
}

// RequireLogin is the authentication half of a check: it allows any
// signed-in actor, and an anonymous one too when action is open to
// everyone. Otherwise the actor is sent to the login page with next set
// to requestURI, so signing in returns them to exactly where they were.
// Ownership is not looked at; see CanEditPost.
func (g *Gate) RequireLogin(actor Actor, action Action, requestURI string) Decision {
	if !actor.Anonymous() || Can(actor, action, Resource{}) {
		return Decision{Kind: Allow}
	}
	return Decision{Kind: RedirectLogin, Location: g.LoginURL(requestURI)}
}

// CanEditPost allows only the post's author. Anonymous actors go to login;
// anyone else signed in goes to detailURL.
func (g *Gate) CanEditPost(actor Actor, post Resource, requestURI, detailURL string) Decision {
	if actor.Anonymous() {
		return Decision{Kind: RedirectLogin, Location: g.LoginURL(requestURI)}
	}
	if !Can(actor, EditPost, post) {
		return Decision{Kind: RedirectTo, Location: detailURL}
	}
	return Decision{Kind: Allow}
}

// LoginURL returns the login entry point carrying next.
func (g *Gate) LoginURL(next string) string {
	sep := "?"
	if strings.Contains(g.loginURL, "?") {
		sep = "&"
	}
	return g.loginURL + sep + url.Values{"next": {next}}.Encode()
}
