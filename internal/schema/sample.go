package schema

// Well-known project names.
const (
	// SampleProjectName is the name of the compiled-in sample board.
	SampleProjectName = "演示大事件"

	// UntitledProjectName is what a freshly initialised document server holds.
	UntitledProjectName = "未命名项目"

	// FallbackProjectName is used when a cached document has no project at all.
	FallbackProjectName = "Project Flow"
)

// Sample returns a fresh copy of the compiled-in sample board.
func Sample() *Document {
	return &Document{
		Project: Project{Name: SampleProjectName},
		ParentModules: []ParentModule{
			{ID: "pm1", Name: "阶段一：基础设施建设"},
			{ID: "pm2", Name: "阶段二：业务功能开发"},
		},
		Modules: []Module{
			{ID: "m1", ParentID: "pm1", Name: "用户中心", Color: "#ff6b6b", StartDate: "2023-11-01", EndDate: "2023-11-15"},
			{ID: "m2", ParentID: "pm2", Name: "支付中台", Color: "#4facfe", StartDate: "2023-11-16", EndDate: "2023-11-30"},
			{ID: "m3", ParentID: "pm2", Name: "数据引擎", Color: "#5bc17f", StartDate: "2023-12-01", EndDate: "2023-12-20"},
		},
		Tasks: []Task{
			{
				ID:           "t1",
				Content:      "用户登录注册API",
				ModuleID:     "m1",
				Status:       StatusDone,
				StartDate:    "2023-11-01",
				EndDate:      "2023-11-05",
				Duration:     5,
				Dependencies: []string{},
			},
			{
				ID:           "t2",
				Content:      "OAuth2.0 集成",
				ModuleID:     "m1",
				Status:       StatusDoing,
				StartDate:    "2023-11-06",
				EndDate:      "2023-11-10",
				Duration:     5,
				Dependencies: []string{"t1"},
			},
			{
				ID:           "t3",
				Content:      "支付网关对接",
				ModuleID:     "m2",
				Status:       StatusPending,
				StartDate:    "2023-11-16",
				EndDate:      "2023-11-20",
				Duration:     5,
				Dependencies: []string{"t1"},
			},
		},
	}
}

// Untitled returns the document a freshly initialised server starts with.
func Untitled() *Document {
	return &Document{
		Project:       Project{Name: UntitledProjectName},
		ParentModules: []ParentModule{},
		Modules:       []Module{},
		Tasks:         []Task{},
	}
}
