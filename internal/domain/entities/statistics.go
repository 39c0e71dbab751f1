package entities

// Statistics is the dashboard summary computed on every request
type Statistics struct {
	TotalPatients int                 `json:"total_patients"`
	NewThisMonth  int                 `json:"new_this_month"`
	TodayPatients int                 `json:"today_patients"`
	AverageAge    int                 `json:"average_age"`
	VisitTypes    VisitTypeBreakdown  `json:"visit_types"`
	HallStatus    HallStatusBreakdown `json:"hall_status"`
}

// VisitTypeBreakdown counts patients per exact visit type
type VisitTypeBreakdown struct {
	Examination     int `json:"examination"`
	FastExamination int `json:"fast_examination"`
	Consultation    int `json:"consultation"`
}

// HallStatusBreakdown counts patients in the hall and finished visits
type HallStatusBreakdown struct {
	InHall   int `json:"in_hall"`
	Finished int `json:"finished"`
}
