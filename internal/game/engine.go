package game

// Turn/round math. Pure functions; playerCount must be >= 1 (the coordinator
// never starts a game with fewer than two players).

func TotalTurns(playerCount, roundsPerPlayer int) int {
	return playerCount * roundsPerPlayer
}

func CurrentMemberIndex(turnCursor, playerCount int) int {
	return turnCursor % playerCount
}

func CurrentRound(turnCursor, playerCount int) int {
	return turnCursor/playerCount + 1
}

func IsComplete(turnCursor, playerCount, roundsPerPlayer int) bool {
	return turnCursor >= TotalTurns(playerCount, roundsPerPlayer)
}
