package api

import (
	"net/http"

	"studio/server/internal/model"
	"studio/server/internal/publish"
	"studio/server/internal/textgen"
	"studio/server/internal/view"

	"github.com/gin-gonic/gin"
)

type tabInfo struct {
	ID    view.Tab `json:"id"`
	Label string   `json:"label"`
}

func tabList() []tabInfo {
	out := make([]tabInfo, 0, len(view.Tabs))
	for _, t := range view.Tabs {
		out = append(out, tabInfo{ID: t, Label: t.Label()})
	}
	return out
}

func creditCosts() gin.H {
	costs := gin.H{}
	for _, v := range model.Variants {
		costs[string(v)] = v.CreditCost()
	}
	return costs
}

func (s *Server) clientBootstrap(c *gin.Context) {
	sess := sessionFromContext(c)
	writeData(c, http.StatusOK, gin.H{
		"session_id":   sess.ID,
		"credit_costs": creditCosts(),
		"packages":     packageList(),
		"custom_recharge": customRules(),
		"text": gin.H{
			"platforms":        textgen.Platforms,
			"tones":            textgen.Tones,
			"default_platform": textgen.DefaultPlatform,
		},
		"social_platforms": publish.Platforms,
		"tabs":             tabList(),
		"feature_flags": gin.H{
			"sse_studio_events": true,
			"video_generation":  true,
			"export_download":   true,
		},
		"sse": gin.H{
			"heartbeat_sec": 15,
			"retry_ms":      2000,
		},
	})
}
