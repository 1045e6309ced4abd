//go:build !race

package userbase

func passwordHashCost() int {
	return 12
}
