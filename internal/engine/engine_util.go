package engine

func DefaultSettings(gameType GameType) Settings {
	return Settings{
		GameType:  gameType,
		Mode:      ModeSolo,
		TurnLimit: DefaultTurnLimit,
		WinScore:  DefaultWinScore,
		FirstTurn: Player1,
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
