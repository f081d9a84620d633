package configdef

// StageDefinition 定义了单个默认审核阶段的所有属性。
type StageDefinition struct {
	Name        string
	DisplayName string
	OrderIndex  int
}

// DefaultTenantName 是首次启动时自动创建的默认租户名。
const DefaultTenantName = "default"

// DefaultStages 是新租户的默认审核阶段序列的"单一事实来源"。
// 引导程序在租户没有任何阶段配置时按此注册表写入，
// 租户管理员随后可以改名、调序或停用。
var DefaultStages = []StageDefinition{
	{Name: "QC", DisplayName: "质检", OrderIndex: 1},
	{Name: "R1", DisplayName: "一审", OrderIndex: 2},
	{Name: "R2", DisplayName: "二审", OrderIndex: 3},
	{Name: "R3", DisplayName: "三审", OrderIndex: 4},
	{Name: "R4", DisplayName: "终审", OrderIndex: 5},
}
