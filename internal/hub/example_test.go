package hub_test

import (
	"fmt"

	"hub/internal/hub"
)

var (
	UserLoggedIn = hub.NewEvent[string]("UserLoggedIn")
	MaybeToken   = hub.NewEvent[*string]("MaybeToken")
)

func Example() {
	h := hub.New()

	logins := hub.Observe(h, UserLoggedIn, func(user string) {
		fmt.Println("logged in:", user)
	})
	defer logins.Remove()

	hub.Observe(h, MaybeToken, func(token *string) {
		if token == nil {
			fmt.Println("no token")
			return
		}
		fmt.Println("token:", *token)
	})

	hub.Post(h, UserLoggedIn, "alice")
	hub.Post(h, UserLoggedIn, "bob")
	hub.Post(h, MaybeToken, nil)

	// Output:
	// logged in: alice
	// logged in: bob
	// no token
}
