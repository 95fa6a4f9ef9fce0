// Package textgen renders marketing copy from fixed per-platform templates.
package textgen

import (
	"context"
	"strings"
	"time"
)

const DefaultPlatform = "instagram"

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var Platforms = []Option{
	{Value: "instagram", Label: "Post de Instagram"},
	{Value: "twitter", Label: "Tweet"},
	{Value: "facebook", Label: "Post de Facebook"},
	{Value: "linkedin", Label: "Post de LinkedIn"},
	{Value: "youtube", Label: "Descripción de YouTube"},
	{Value: "blog", Label: "Artículo de Blog"},
}

var Tones = []Option{
	{Value: "casual", Label: "Casual"},
	{Value: "profesional", Label: "Profesional"},
	{Value: "divertido", Label: "Divertido"},
	{Value: "inspiracional", Label: "Inspiracional"},
	{Value: "urgente", Label: "Urgente"},
	{Value: "educativo", Label: "Educativo"},
}

var professional = strings.NewReplacer(
	"🌟", "",
	"💫", "",
	"✨", "",
	"🔥", "",
	"¡", ".",
	"!", ".",
)

type Request struct {
	Topic    string `json:"topic"`
	Platform string `json:"platform"`
	Tone     string `json:"tone"`
}

// Hashtag strips every whitespace run from topic.
func Hashtag(topic string) string {
	return strings.Join(strings.Fields(topic), "")
}

// Render fills the platform template and applies the tone. Unknown platforms
// fall back to instagram; tones without a transform leave the text as is.
func Render(req Request) string {
	tpl, ok := templates[req.Platform]
	if !ok {
		tpl = templates[DefaultPlatform]
	}
	text := strings.NewReplacer("{topic}", req.Topic, "{hashtag}", Hashtag(req.Topic)).Replace(tpl)
	switch req.Tone {
	case "profesional":
		text = professional.Replace(text)
	case "divertido":
		text += " 😄🎉✨"
	}
	return text
}

// Generator simulates model latency before rendering.
type Generator struct {
	Delay time.Duration
}

func (g Generator) Generate(ctx context.Context, req Request) (string, error) {
	if g.Delay > 0 {
		timer := time.NewTimer(g.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return Render(req), nil
}
