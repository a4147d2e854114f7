package dispatch

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"

	"sellerops/internal/models"
)

var (
	simulatedInsights = []string{
		"Sales velocity is up week over week",
		"Two listings are priced above the category median",
		"Stock for the top seller covers less than 10 days",
		"Return rate is concentrated in one size variant",
		"Competitor prices dropped over the weekend",
		"Conversion improves when images are refreshed",
		"Sponsored ads drive most new-customer orders",
	}
	simulatedActions = []string{
		"Adjusted price",
		"Updated stock level",
		"Queued listing refresh",
		"Sent seller notification",
		"Paused underperforming ad",
	}
)

// Simulate produces the demo output for a block. It is a pure function of
// (category, name, input): identical arguments always give identical output.
func Simulate(category models.Category, name string, input map[string]any) map[string]any {
	h := seed(category, name, input)

	out := map[string]any{
		"category":  string(category),
		"block":     name,
		"simulated": true,
	}

	switch category {
	case models.CategoryCollect:
		records := int(h%900) + 100
		out["records"] = records
		out["source"] = name
		out["summary"] = fmt.Sprintf("Collected %d records from %s (demo)", records, name)
	case models.CategoryThink:
		n := int(h%3) + 2
		insights := make([]string, 0, n)
		for i := 0; i < n; i++ {
			insights = append(insights, simulatedInsights[pick(h>>8, i, len(simulatedInsights))])
		}
		confidence := math.Round((0.6+float64(h%40)/100)*100) / 100
		out["insights"] = insights
		out["confidence"] = confidence
		out["summary"] = fmt.Sprintf("%s found %d insights (demo)", name, n)
	case models.CategoryAct:
		n := int(h%4) + 1
		actions := make([]string, 0, n)
		for i := 0; i < n; i++ {
			actions = append(actions, simulatedActions[pick(h>>8, i, len(simulatedActions))])
		}
		affected := int(h%50) + 1
		out["actions"] = actions
		out["affected"] = affected
		out["summary"] = fmt.Sprintf("%s applied %d actions to %d items (demo)", name, n, affected)
	case models.CategoryAgent:
		agentRef, _ := input["agentRef"].(string)
		prompt, _ := input["prompt"].(string)
		response := fmt.Sprintf("%s reviewed the request and prepared a plan.", name)
		if prompt != "" {
			response = fmt.Sprintf("%s reviewed %q and prepared a plan.", name, prompt)
		}
		out["agentRef"] = agentRef
		out["response"] = response
		out["summary"] = fmt.Sprintf("%s responded (demo)", name)
	default:
		out["summary"] = fmt.Sprintf("%s ran (demo)", name)
	}
	return out
}

// seed hashes the category, name and canonical JSON of the input.
// encoding/json sorts map keys, so equal maps hash equally.
// pick indexes a list of n entries without converting the hash to a signed int
func pick(h uint64, offset, n int) int {
	return int((h + uint64(offset)) % uint64(n))
}

func seed(category models.Category, name string, input map[string]any) uint64 {
	h := fnv.New64a()
	h.Write([]byte(category))
	h.Write([]byte{0})
	h.Write([]byte(name))
	h.Write([]byte{0})
	if b, err := json.Marshal(input); err == nil {
		h.Write(b)
	}
	return h.Sum64()
}
