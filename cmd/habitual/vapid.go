package main

import (
	"fmt"

	"github.com/dukerupert/habitual/internal/push"
)

type vapidKeysCmd struct{}

func (c *vapidKeysCmd) Run(app *appContext) error {
	pub, priv, err := push.GenerateVAPIDKeys()
	if err != nil {
		return err
	}
	fmt.Printf("HABITUAL_VAPID_PUBLIC_KEY=%s\nHABITUAL_VAPID_PRIVATE_KEY=%s\n", pub, priv)
	return nil
}
