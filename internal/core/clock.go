package core

import "time"

// Clock is injected into the managers so the sweeper can be driven in tests.
type Clock func() time.Time

func SystemClock() time.Time { return time.Now() }
