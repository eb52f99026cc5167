package dingtalk

import (
	"maps"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/plugins/dingtalk/resources/notable"
	"github.com/sflowg/dingtalk/plugins/dingtalk/resources/workbooks"
	"github.com/sflowg/dingtalk/plugins/dingtalk/resources/workflow"
	"github.com/sflowg/dingtalk/runtime"
)

// The methods below are host tasks backing list searches and resource
// mappers in the editor. args carry the current parameter values and
// override the execution's parameters.

// SheetSearch lists the sheets of a notable base.
func (p *Plugin) SheetSearch(exec *runtime.Execution, args map[string]any) (map[string]any, error) {
	results, err := notable.SearchSheets(p.lookupContext(exec, args))
	if err != nil {
		return nil, err
	}
	return map[string]any{"results": results}, nil
}

// NotableColumns describes the fields of a notable sheet.
func (p *Plugin) NotableColumns(exec *runtime.Execution, args map[string]any) (map[string]any, error) {
	fields, err := notable.ColumnFields(p.lookupContext(exec, args))
	if err != nil {
		return nil, err
	}
	return map[string]any{"fields": fields}, nil
}

// WorkbookSheetsSearch lists the sheets of a workbook, filtered by args["filter"].
func (p *Plugin) WorkbookSheetsSearch(exec *runtime.Execution, args map[string]any) (map[string]any, error) {
	filter := runtime.ToString(args["filter"])
	results, err := workbooks.SearchSheets(p.lookupContext(exec, args), filter)
	if err != nil {
		return nil, err
	}
	return map[string]any{"results": results}, nil
}

// WorkbookColumns describes the columns of a workbook header row.
func (p *Plugin) WorkbookColumns(exec *runtime.Execution, args map[string]any) (map[string]any, error) {
	fields, err := workbooks.HeaderFields(p.lookupContext(exec, args))
	if err != nil {
		return nil, err
	}
	return map[string]any{"fields": fields}, nil
}

// WorkflowProcessVariables describes the form controls of an approval process.
func (p *Plugin) WorkflowProcessVariables(exec *runtime.Execution, args map[string]any) (map[string]any, error) {
	fields, notice, err := workflow.ProcessVariables(p.lookupContext(exec, args))
	if err != nil {
		return nil, err
	}
	out := map[string]any{"fields": fields}
	if notice != "" {
		out["emptyFieldsNotice"] = notice
	}
	return out, nil
}

func (p *Plugin) lookupContext(exec *runtime.Execution, args map[string]any) *operation.Context {
	params := maps.Clone(exec.Parameters)
	if params == nil {
		params = map[string]any{}
	}
	maps.Copy(params, args)

	node := exec.Node
	if node == nil {
		desc := p.node.Description()
		node = &desc
	}
	return operation.NewContext(
		runtime.NewExecution(exec, exec.Container, node, params, exec.Items),
		p.client,
	)
}
