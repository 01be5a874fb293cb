package bot

import (
	"github.com/example/reptrainer/pkg/models"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Only this chat may use the bot; 0 accepts every chat
	OwnerChatID int64
	// Mode used when /train does not name one
	DefaultMode models.TrainingMode
	// Number of lines per page of /lines and per /due listing
	BatchSize int
	// Wrong answers on the same prompt before the expected move is revealed
	HintAfterMistakes int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		DefaultMode:       models.DepthFirst,
		BatchSize:         20,
		HintAfterMistakes: 2,
	}
}
