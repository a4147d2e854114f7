package models

import "time"

// BlockConfiguration decides whether a block runs for real or in demo mode
type BlockConfiguration struct {
	ID           string            `bson:"_id" json:"id"`
	UserID       string            `bson:"userId" json:"user_id"`
	Category     Category          `bson:"category" json:"category"`
	Name         string            `bson:"name" json:"name"`
	BlockID      string            `bson:"blockId" json:"block_id,omitempty"` // optional binding to one block
	IsFunctional bool              `bson:"isFunctional" json:"is_functional"`
	ConfigData   map[string]any    `bson:"configData,omitempty" json:"config_data,omitempty"`
	Credentials  map[string]string `bson:"credentials,omitempty" json:"-"`
	UpdatedAt    time.Time         `bson:"updatedAt" json:"updated_at"`
}

// Clone copies the configuration so its maps can be changed independently
func (c BlockConfiguration) Clone() BlockConfiguration {
	out := c
	if c.ConfigData != nil {
		out.ConfigData = make(map[string]any, len(c.ConfigData))
		for k, v := range c.ConfigData {
			out.ConfigData[k] = v
		}
	}
	if c.Credentials != nil {
		out.Credentials = make(map[string]string, len(c.Credentials))
		for k, v := range c.Credentials {
			out.Credentials[k] = v
		}
	}
	return out
}

// ExecutionStatus is the lifecycle of one dispatcher invocation
type ExecutionStatus string

const (
	ExecutionStatusProcessing ExecutionStatus = "processing"
	ExecutionStatusCompleted  ExecutionStatus = "completed"
	ExecutionStatusFailed     ExecutionStatus = "failed"
)

// ExecutionRecord is the append-only audit entry for one block dispatch
type ExecutionRecord struct {
	ID          string          `bson:"_id" json:"id"`
	UserID      string          `bson:"userId" json:"user_id"`
	BlockID     string          `bson:"blockId,omitempty" json:"block_id,omitempty"`
	Category    Category        `bson:"category" json:"category"`
	Name        string          `bson:"name" json:"name"`
	InputData   map[string]any  `bson:"inputData,omitempty" json:"input_data,omitempty"`
	OutputData  map[string]any  `bson:"outputData,omitempty" json:"output_data,omitempty"`
	Status      ExecutionStatus `bson:"status" json:"status"`
	Error       string          `bson:"error,omitempty" json:"error,omitempty"`
	DemoMode    bool            `bson:"demoMode" json:"demo_mode"`
	StartedAt   time.Time       `bson:"startedAt" json:"started_at"`
	CompletedAt *time.Time      `bson:"completedAt,omitempty" json:"completed_at,omitempty"`
}
