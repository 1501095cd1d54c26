package student

type StudentsResponse struct {
	Students []Student `json:"students"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

type GroupStudentsResponse struct {
	Group    Group     `json:"group"`
	Students []Student `json:"students"`
}
