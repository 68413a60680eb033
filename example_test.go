package vault_test

import (
	"fmt"

	"github.com/TheBitDrifter/vault"
)

type Position struct {
	X, Y float64
}

type Velocity struct {
	X, Y float64
}

func Example() {
	storage := vault.Factory.NewStorage()

	position := vault.FactoryNewComponent[Position]()
	velocity := vault.FactoryNewComponent[Velocity]()

	storage.Spawn(position.With(Position{X: 0, Y: 0}), velocity.With(Velocity{X: 1, Y: 2}))
	storage.Spawn(position.With(Position{X: 10, Y: 10}), velocity.With(Velocity{X: -1, Y: 0}))
	storage.Spawn(position.With(Position{X: 5, Y: 5}))

	query := vault.Factory.NewQuery()
	cursor := vault.Factory.NewCursor(query.And(position.Mut(), velocity), storage)
	for cursor.Next() {
		pos := position.GetFromCursor(cursor)
		vel := velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}

	cursor = vault.Factory.NewCursor(query.And(position), storage)
	for cursor.Next() {
		pos := position.GetFromCursor(cursor)
		fmt.Printf("(%g, %g)\n", pos.X, pos.Y)
	}

	// Output:
	// (1, 2)
	// (9, 10)
	// (5, 5)
}
