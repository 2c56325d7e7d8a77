package console

import (
	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/core/workspace"
)

// Gateway groups the remote services the console drives.
type Gateway struct {
	Workspaces workspace.Service
	Reviews    review.Service
	LLMs       llm.Service
}
