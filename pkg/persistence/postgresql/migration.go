package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflow_patterns (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				workflow_type VARCHAR(50) NOT NULL CHECK (workflow_type IN ('sequential', 'orchestrator', 'parallel')),
				agent_ids JSONB NOT NULL,
				task_ids JSONB NOT NULL,
				user_objective TEXT NOT NULL DEFAULT '',
				project_directory TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'archived')),
				max_iterations INT NOT NULL DEFAULT 0,
				max_parallel INT NOT NULL DEFAULT 0,
				step_timeout_ns BIGINT NOT NULL DEFAULT 0,
				retry_failed_steps BOOLEAN NOT NULL DEFAULT FALSE,
				continue_on_failure BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_patterns_status ON workflow_patterns(status);
			CREATE INDEX idx_workflow_patterns_created_at ON workflow_patterns(created_at);

			CREATE TABLE workflow_executions (
				id UUID PRIMARY KEY,
				pattern_id UUID NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'completed', 'failed', 'aborted')),
				current_step INT NOT NULL DEFAULT 0,
				total_steps INT NOT NULL DEFAULT 0,
				progress_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
				active_agents JSONB,
				completed_tasks JSONB,
				failed_tasks JSONB,
				step_outputs JSONB,
				iteration_count INT NOT NULL DEFAULT 0,
				context JSONB,
				error TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflow_executions_pattern_id ON workflow_executions(pattern_id);
			CREATE INDEX idx_workflow_executions_status ON workflow_executions(status);
			CREATE INDEX idx_workflow_executions_started_at ON workflow_executions(started_at);

			CREATE TABLE agent_communications (
				id UUID PRIMARY KEY,
				execution_id UUID NOT NULL,
				from_agent_id VARCHAR(255) NOT NULL,
				to_agent_id VARCHAR(255) NOT NULL,
				message TEXT NOT NULL DEFAULT '',
				message_type VARCHAR(50) NOT NULL CHECK (message_type IN ('handoff', 'status', 'result', 'error')),
				context JSONB,
				timestamp TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_agent_communications_execution_id ON agent_communications(execution_id);
			CREATE INDEX idx_agent_communications_timestamp ON agent_communications(timestamp);
		`,
	}
}
