package dto

type TowerResponse struct {
	ID string `json:"id"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
}
