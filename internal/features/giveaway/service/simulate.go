package service

import (
	"context"
	"fmt"

	"twitch-giveaway-backend/internal/features/giveaway/models"
)

// keywordChancePercent is how often a simulated viewer posts the keyword.
const keywordChancePercent = 30

var demoUsers = []string{
	"StreamFan123", "GamerPro", "TwitchLover", "ChatMaster", "ViewerOne",
	"KappaPride", "EpicGamer", "StreamSniper", "ChatBot2023", "ProViewer",
	"TwitchNinja", "StreamKing", "ViewerMaster", "ChatLegend", "GameOn",
	"StreamHero", "TwitchStar", "ViewerPro", "ChatChampion", "StreamFan",
}

var demoMessages = []string{
	"Hi stream!", "Great game!", "First!", "How is it going?",
	"Awesome content!", "Good luck!", "Watching every day!",
	"Best streamer!", "Interesting!", "Keep it up!",
}

// Simulate feeds one synthetic chat line through Ingest. With no id it
// targets the newest active giveaway.
func (s *Service) Simulate(ctx context.Context, giveawayID string) (*IngestResult, error) {
	var (
		g   *models.Giveaway
		err error
	)
	if giveawayID == "" {
		g, err = s.GetActive(ctx, "")
		if err == nil && g == nil {
			err = ErrNoActiveGiveaway
		}
	} else {
		g, err = s.Get(ctx, giveawayID)
	}
	if err != nil {
		return nil, err
	}

	user, err := s.pick(demoUsers)
	if err != nil {
		return nil, err
	}
	roll, err := s.picker.Intn(100)
	if err != nil {
		return nil, fmt.Errorf("failed to simulate chat: %w", err)
	}

	text := g.Keyword
	if roll >= keywordChancePercent {
		if text, err = s.pick(demoMessages); err != nil {
			return nil, err
		}
	}

	return s.Ingest(ctx, SourceSimulator, models.ChatEvent{
		Username: user,
		Message:  text,
		Channel:  g.ChannelName,
		Keyword:  g.Keyword,
	})
}

func (s *Service) pick(items []string) (string, error) {
	i, err := s.picker.Intn(len(items))
	if err != nil {
		return "", fmt.Errorf("failed to simulate chat: %w", err)
	}
	return items[i], nil
}
