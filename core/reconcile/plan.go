package reconcile

import (
	"schema-manager/core/schema"

	"go.uber.org/zap"
)

// tableAction is the outcome of comparing one required table with the cache.
type tableAction int

const (
	tableKeep tableAction = iota
	tableDeploy
	tableRedeploy
	tableTruncate
)

func (a tableAction) String() string {
	switch a {
	case tableDeploy:
		return "deploy"
	case tableRedeploy:
		return "redeploy"
	case tableTruncate:
		return "truncate"
	default:
		return "keep"
	}
}

// tablePlan is the decision for one required table. existing is the cached
// descriptor, set only when one was present.
type tablePlan struct {
	action   tableAction
	required schema.Table
	existing schema.Table
}

// decideTable applies the per-table rules:
//
//	absent                                   -> deploy
//	present, different                       -> drop + deploy
//	present, equal, not confirmed empty      -> truncate
//	present, equal, confirmed empty, ALWAYS  -> truncate
//	present, equal, confirmed empty          -> nothing
//
// The table cache must be loaded.
func (m *Manager) decideTable(required schema.Table, behavior TruncationBehavior) tablePlan {
	p := tablePlan{required: required}

	existing, ok := m.ec.table(required.Name)
	if !ok {
		p.action = tableDeploy
		return p
	}
	p.existing = existing

	if !m.comparator.TablesMatch(existing, required) {
		p.action = tableRedeploy
		return p
	}

	if !m.ec.isEmpty(required.Name) || behavior == TruncateAlways {
		p.action = tableTruncate
		return p
	}

	p.action = tableKeep
	return p
}

// applyTablePlan renders the statements for a decision and records the
// resulting state in the cache.
func (m *Manager) applyTablePlan(p tablePlan, result *Result) []string {
	var statements []string
	name := p.required.Name

	switch p.action {
	case tableRedeploy:
		statements = append(statements, m.dialect.DropTableStatements(p.existing)...)
		m.ec.removeTable(p.existing.Name)
		result.TablesDropped = append(result.TablesDropped, p.existing.Name)
		fallthrough
	case tableDeploy:
		statements = append(statements, m.dialect.TableDeploymentStatements(p.required)...)
		m.ec.putTable(p.required)
		m.ec.markEmpty(name)
		result.TablesDeployed = append(result.TablesDeployed, name)
	case tableTruncate:
		statements = append(statements, m.dialect.DeleteAllFromTableStatements(p.required)...)
		m.ec.markEmpty(name)
		result.TablesTruncated = append(result.TablesTruncated, name)
	}

	if p.action != tableKeep {
		m.logger.Debug("Table scheduled",
			zap.String("table", name),
			zap.Stringer("action", p.action),
		)
	}
	return statements
}

// checkTableName warns about names longer than the portable limit.
func (m *Manager) checkTableName(name string) {
	if m.opts.MaxTableNameLength > 0 && len(name) > m.opts.MaxTableNameLength {
		m.logger.Warn("Table name exceeds portable length",
			zap.String("table", name),
			zap.Int("length", len(name)),
			zap.Int("max", m.opts.MaxTableNameLength),
		)
	}
}
