package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow definitions: states and transitions stored as JSONB,
			-- the definition is read and written as one document.
			CREATE TABLE workflow_definitions (
				name VARCHAR(255) PRIMARY KEY,
				description TEXT NOT NULL DEFAULT '',
				states JSONB NOT NULL,
				transitions JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE teams (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				scrum_master VARCHAR(255) NOT NULL DEFAULT '',
				product_owner VARCHAR(255) NOT NULL DEFAULT '',
				members JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_teams_scrum_master ON teams(scrum_master);
			CREATE INDEX idx_teams_product_owner ON teams(product_owner);
			CREATE INDEX idx_teams_members ON teams USING GIN (members);

			CREATE TABLE users (
				username VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL DEFAULT '',
				email VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE products (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				version VARCHAR(255) NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				workflow_name VARCHAR(255),
				team_id UUID,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_products_team_id ON products(team_id);
			CREATE INDEX idx_products_deleted_at ON products(deleted_at);

			CREATE TABLE sprints (
				id UUID PRIMARY KEY,
				product_id UUID NOT NULL REFERENCES products(id),
				number INT NOT NULL,
				starts_at TIMESTAMP WITH TIME ZONE,
				ends_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (product_id, number)
			);

			-- Backlog items: status keeps the legacy "<ordinal>*<label>"
			-- encoding, version backs the optimistic concurrency check.
			CREATE TABLE backlog_items (
				id UUID PRIMARY KEY,
				product_id UUID NOT NULL REFERENCES products(id),
				sprint_id UUID REFERENCES sprints(id),
				title VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				effort INT NOT NULL DEFAULT 0,
				priority INT NOT NULL DEFAULT 0,
				status VARCHAR(255) NOT NULL,
				version BIGINT NOT NULL DEFAULT 1,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_backlog_items_product_id ON backlog_items(product_id);
			CREATE INDEX idx_backlog_items_sprint_id ON backlog_items(sprint_id);
		`,
	}
}
