// Package all is a meta-package that imports all store implementations.
//
// This is a HACK to make tests and the lbsim binary see every backend.
package all

import (
	_ "github.com/TecharoHQ/lbsim/lib/store/memory"
	_ "github.com/TecharoHQ/lbsim/lib/store/valkey"
)
