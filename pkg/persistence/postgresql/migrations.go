package postgresql

// migrations returns the schema migrations for the analytics read-model,
// keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflow_steps (
				workflow_id VARCHAR(255) NOT NULL,
				step_id     VARCHAR(255) NOT NULL,
				name        VARCHAR(255) NOT NULL DEFAULT '',
				position    INTEGER NOT NULL,
				PRIMARY KEY (workflow_id, step_id)
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_steps_order
				ON workflow_steps (workflow_id, position);

			CREATE TABLE IF NOT EXISTS enrollment_events (
				id          VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				contact_id  VARCHAR(255) NOT NULL,
				source      VARCHAR(50) NOT NULL,
				occurred_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_enrollment_events_workflow_time
				ON enrollment_events (workflow_id, occurred_at);

			CREATE TABLE IF NOT EXISTS step_events (
				id          VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				step_id     VARCHAR(255) NOT NULL,
				event_type  VARCHAR(20) NOT NULL,
				exit_reason VARCHAR(50),
				duration_ms BIGINT,
				occurred_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_step_events_workflow_time
				ON step_events (workflow_id, occurred_at);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS metrics_snapshots (
				id                 VARCHAR(255) PRIMARY KEY,
				workflow_id        VARCHAR(255) NOT NULL,
				range_start        TIMESTAMP WITH TIME ZONE NOT NULL,
				range_end          TIMESTAMP WITH TIME ZONE NOT NULL,
				total_enrollments  BIGINT NOT NULL,
				total_completions  BIGINT NOT NULL,
				reached_final_step BIGINT NOT NULL DEFAULT 0,
				conversion_rate    DOUBLE PRECISION NOT NULL,
				completion_rate    DOUBLE PRECISION NOT NULL,
				computed_at        TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_metrics_snapshots_workflow_time
				ON metrics_snapshots (workflow_id, computed_at);
		`,
	}
}
