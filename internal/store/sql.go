package store

import (
	"database/sql"
	"errors"
)

const configColumns = `
	control_name, control_group, control_type, control_subtype, control_engine,
	source_name, source_date_field, source_filter,
	source_name_a, source_date_field_a, source_filter_a, source_key_field_a,
	source_name_b, source_date_field_b, source_filter_b, source_key_field_b,
	rule_config, error_definition, case_config, case_definition,
	output_table, output_table_a, output_table_b, iteration_config, schedule_config,
	period_back, period_number, period_type,
	parallelism, days_retention, timeout,
	need_a, need_b, need_hook, need_prerun_hook, need_postrun_hook,
	with_deletion, with_drop, status,
	prerequisite_sql, preparation_sql, completion_sql,
	created_date, updated_date`

const configNamedValues = `
	:control_name, :control_group, :control_type, :control_subtype, :control_engine,
	:source_name, :source_date_field, :source_filter,
	:source_name_a, :source_date_field_a, :source_filter_a, :source_key_field_a,
	:source_name_b, :source_date_field_b, :source_filter_b, :source_key_field_b,
	:rule_config, :error_definition, :case_config, :case_definition,
	:output_table, :output_table_a, :output_table_b, :iteration_config, :schedule_config,
	:period_back, :period_number, :period_type,
	:parallelism, :days_retention, :timeout,
	:need_a, :need_b, :need_hook, :need_prerun_hook, :need_postrun_hook,
	:with_deletion, :with_drop, :status,
	:prerequisite_sql, :preparation_sql, :completion_sql,
	:created_date, :updated_date`

var insertConfigSQL = "INSERT INTO rapo_config (" + configColumns + ") VALUES (" + configNamedValues + ")"

const updateConfigSQL = `
	UPDATE rapo_config SET
		control_name = :control_name, control_group = :control_group,
		control_type = :control_type, control_subtype = :control_subtype, control_engine = :control_engine,
		source_name = :source_name, source_date_field = :source_date_field, source_filter = :source_filter,
		source_name_a = :source_name_a, source_date_field_a = :source_date_field_a,
		source_filter_a = :source_filter_a, source_key_field_a = :source_key_field_a,
		source_name_b = :source_name_b, source_date_field_b = :source_date_field_b,
		source_filter_b = :source_filter_b, source_key_field_b = :source_key_field_b,
		rule_config = :rule_config, error_definition = :error_definition,
		case_config = :case_config, case_definition = :case_definition,
		output_table = :output_table, output_table_a = :output_table_a, output_table_b = :output_table_b,
		iteration_config = :iteration_config, schedule_config = :schedule_config,
		period_back = :period_back, period_number = :period_number, period_type = :period_type,
		parallelism = :parallelism, days_retention = :days_retention, timeout = :timeout,
		need_a = :need_a, need_b = :need_b, need_hook = :need_hook,
		need_prerun_hook = :need_prerun_hook, need_postrun_hook = :need_postrun_hook,
		with_deletion = :with_deletion, with_drop = :with_drop, status = :status,
		prerequisite_sql = :prerequisite_sql, preparation_sql = :preparation_sql, completion_sql = :completion_sql,
		updated_date = :updated_date
	WHERE control_id = :control_id`

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func wrapNotFound(err error, sentinel error) error {
	if isNotFound(err) {
		return sentinel
	}
	return err
}
