//go:build race

package userbase

import "golang.org/x/crypto/bcrypt"

// Race builds hash at the minimum cost; the detector already slows every
// comparison by an order of magnitude.
func passwordHashCost() int {
	return bcrypt.MinCost
}
