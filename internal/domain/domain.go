package domain

type Project struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Category         string  `json:"category" enum:"Brand Identity,Web Design,Packaging,Product Design"`
	Client           string  `json:"client,omitempty"`
	Status           string  `json:"status"`
	Stage            string  `json:"stage" enum:"Intake,Strategy,Design,Production,Delivered"`
	ReviewStatus     string  `json:"review_status" enum:"PENDING,APPROVED,REJECTED"`
	ClientBrief      string  `json:"client_brief,omitempty"`
	BudgetCap        float64 `json:"budget_cap"`
	InvoicedTotal    float64 `json:"invoiced_total"`
	InternalCost     float64 `json:"internal_cost"`
	ProjectedRevenue float64 `json:"projected_revenue"`
	HealthScore      int     `json:"health_score"`
	IsLead           bool    `json:"is_lead"`
	ExecutiveSummary string  `json:"executive_summary,omitempty"`
	// StrategicTensions and DesignPrinciples hold serialized JSON string arrays.
	StrategicTensions string `json:"strategic_tensions,omitempty"`
	DesignPrinciples  string `json:"design_principles,omitempty"`
	CreatedAt         string `json:"created_at" format:"date-time"`
}

type WorkflowStep struct {
	ID           int64   `json:"id"`
	ProjectID    int64   `json:"project_id"`
	State        string  `json:"state"`
	StepType     string  `json:"step_type" enum:"input_needed,decision_gate,approval_gate,milestone,agent_output"`
	Agent        string  `json:"agent"`
	Title        string  `json:"title"`
	Body         string  `json:"body"`
	OptionsJSON  string  `json:"options_json,omitempty"`
	ChosenOption *string `json:"chosen_option,omitempty"`
	Status       string  `json:"status" enum:"active,resolved"`
	Phase        string  `json:"phase" enum:"strategy,design,production"`
	SortOrder    int     `json:"sort_order"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
	ResolvedAt   *string `json:"resolved_at,omitempty" format:"date-time"`
}

type Deliverable struct {
	ID        int64   `json:"id"`
	ProjectID int64   `json:"project_id"`
	Title     string  `json:"title"`
	Status    string  `json:"status" enum:"Pending,In Progress,Review,Approved"`
	Owner     string  `json:"owner"`
	DueDate   *string `json:"due_date,omitempty" format:"date-time"`
}

type Document struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	DocType   string `json:"doc_type" enum:"html,text,link"`
	Content   string `json:"content,omitempty"`
	Version   int    `json:"version"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type Task struct {
	ID        int64  `json:"id"`
	ProjectID *int64 `json:"project_id,omitempty"`
	Title     string `json:"title"`
	Priority  string `json:"priority" enum:"High,Normal,Low"`
	Status    string `json:"status" enum:"Todo,Done"`
	DueDate   string `json:"due_date" format:"date-time"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Risk struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"project_id"`
	Description string `json:"description"`
	Severity    string `json:"severity" enum:"Low,Medium,High,Critical"`
	Category    string `json:"category"`
	Status      string `json:"status" enum:"Active,Mitigated,Accepted"`
}

type Invoice struct {
	ID        int64   `json:"id"`
	ProjectID int64   `json:"project_id"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status" enum:"Draft,Sent,Overdue,Paid"`
	DueDate   *string `json:"due_date,omitempty" format:"date-time"`
}

type AgentLog struct {
	ID        int64  `json:"id"`
	ProjectID *int64 `json:"project_id,omitempty"`
	Agent     string `json:"agent"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
