package models

// TaskDefinition describes a registered unit of work. DependsOn lists other
// task ids that must complete before this task becomes eligible.
type TaskDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Prompt      string   `json:"prompt,omitempty"`
	DependsOn   []string `json:"depends_on,omitempty"`
	Priority    int      `json:"priority,omitempty"`
}
