package server

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Atlasdesignstudio/templo-atelier/internal/engine"
)

// Studio dashboards aggregate across every project. Leads count toward the
// pipeline, not the active book of work.

type StudioPulse struct {
	ActiveCount        int     `json:"active_count"`
	PipelineVolume     float64 `json:"pipeline_volume"`
	AvgMargin          float64 `json:"avg_margin"`
	RevenueForecast    float64 `json:"revenue_forecast"`
	CriticalRisksCount int     `json:"critical_risks_count"`
	CashflowStatus     string  `json:"cashflow_status" enum:"Healthy,Attention"`
}

type StudioProjectHealth struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Stage  string `json:"stage"`
	Health int    `json:"health"`
}

type StudioOperations struct {
	DeliverablesDue7d   int                   `json:"deliverables_due_7d"`
	DeliverablesOverdue int                   `json:"deliverables_overdue"`
	ActiveProjects      []StudioProjectHealth `json:"active_projects"`
}

type StudioProjectFinancials struct {
	Name     string  `json:"name"`
	Budget   float64 `json:"budget"`
	Invoiced float64 `json:"invoiced"`
	Cost     float64 `json:"cost"`
	Margin   float64 `json:"margin"`
}

type StudioFinancials struct {
	OverdueInvoicesCount int                       `json:"overdue_invoices_count"`
	OverdueValue         float64                   `json:"overdue_value"`
	ProjectFinancials    []StudioProjectFinancials `json:"project_financials"`
}

type StudioPipelineEntry struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Value       float64 `json:"value"`
	Status      string  `json:"status"`
	Probability int     `json:"probability"`
}

func registerStudio(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "studio-pulse",
		Method:      http.MethodGet,
		Path:        "/studio/pulse",
		Summary:     "Top-level studio metrics",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StudioPulse `json:"body"`
	}, error) {
		projects, err := e.Repo.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		var pulse StudioPulse
		var invoiced, cost float64
		for _, p := range projects {
			if p.IsLead {
				pulse.PipelineVolume += p.ProjectedRevenue
				continue
			}
			pulse.ActiveCount++
			pulse.RevenueForecast += p.ProjectedRevenue
			invoiced += p.InvoicedTotal
			cost += p.InternalCost
		}
		avgMargin := 0.0
		if invoiced > 0 {
			avgMargin = (invoiced - cost) / invoiced * 100
		}
		pulse.AvgMargin = math.Trunc(avgMargin*10) / 10
		risks, err := e.Repo.ListActiveRisks(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		for _, k := range risks {
			if k.Severity == "High" {
				pulse.CriticalRisksCount++
			}
		}
		pulse.CashflowStatus = "Attention"
		if avgMargin > 30 {
			pulse.CashflowStatus = "Healthy"
		}
		return &struct {
			Body StudioPulse `json:"body"`
		}{Body: pulse}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "studio-operations",
		Method:      http.MethodGet,
		Path:        "/studio/operations",
		Summary:     "Deliverable deadlines and project health",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StudioOperations `json:"body"`
	}, error) {
		projects, err := e.Repo.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		now := time.Now()
		if e.Now != nil {
			now = e.Now()
		}
		now = now.UTC()
		nextWeek := now.Add(7 * 24 * time.Hour)

		ops := StudioOperations{ActiveProjects: []StudioProjectHealth{}}
		for _, p := range projects {
			if !p.IsLead {
				ops.ActiveProjects = append(ops.ActiveProjects, StudioProjectHealth{
					ID:     p.ID,
					Name:   p.Name,
					Stage:  p.Stage,
					Health: p.HealthScore,
				})
			}
			deliverables, err := e.Repo.ListDeliverables(ctx, p.ID)
			if err != nil {
				return nil, handleError(err)
			}
			for _, d := range deliverables {
				if d.DueDate == nil {
					continue
				}
				due, err := time.Parse(time.RFC3339, *d.DueDate)
				if err != nil {
					continue
				}
				if !due.Before(now) && !due.After(nextWeek) {
					ops.DeliverablesDue7d++
				}
				if due.Before(now) && d.Status != "Approved" {
					ops.DeliverablesOverdue++
				}
			}
		}
		return &struct {
			Body StudioOperations `json:"body"`
		}{Body: ops}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "studio-financials",
		Method:      http.MethodGet,
		Path:        "/studio/financials",
		Summary:     "Invoice and margin health",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StudioFinancials `json:"body"`
	}, error) {
		invoices, err := e.Repo.ListAllInvoices(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		fin := StudioFinancials{ProjectFinancials: []StudioProjectFinancials{}}
		for _, v := range invoices {
			if v.Status == "Overdue" {
				fin.OverdueInvoicesCount++
				fin.OverdueValue += v.Amount
			}
		}
		projects, err := e.Repo.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		for _, p := range projects {
			if p.IsLead {
				continue
			}
			margin := 0.0
			if p.InvoicedTotal > 0 {
				margin = math.Round((p.InvoicedTotal-p.InternalCost)/p.InvoicedTotal*1000) / 10
			}
			fin.ProjectFinancials = append(fin.ProjectFinancials, StudioProjectFinancials{
				Name:     p.Name,
				Budget:   p.BudgetCap,
				Invoiced: p.InvoicedTotal,
				Cost:     p.InternalCost,
				Margin:   margin,
			})
		}
		return &struct {
			Body StudioFinancials `json:"body"`
		}{Body: fin}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "studio-pipeline",
		Method:      http.MethodGet,
		Path:        "/studio/pipeline",
		Summary:     "Revenue pipeline",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []StudioPipelineEntry `json:"body"`
	}, error) {
		projects, err := e.Repo.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		out := []StudioPipelineEntry{}
		for _, p := range projects {
			if !p.IsLead {
				continue
			}
			probability := 30
			if p.Stage == "Lead" {
				probability = 70
			}
			out = append(out, StudioPipelineEntry{
				ID:          p.ID,
				Name:        p.Name,
				Value:       p.ProjectedRevenue,
				Status:      p.Status,
				Probability: probability,
			})
		}
		return &struct {
			Body []StudioPipelineEntry `json:"body"`
		}{Body: out}, nil
	})
}
