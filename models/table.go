package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Table statuses
const (
	TableFree     = "free"
	TableOccupied = "occupied"
	TableReserved = "reserved"
	TableCleaning = "cleaning"
)

// Table shapes
const (
	ShapeSquare    = "square"
	ShapeRound     = "round"
	ShapeRectangle = "rectangle"
)

type Position struct {
	X float64 `json:"x" gorm:"column:x;default:0"`
	Y float64 `json:"y" gorm:"column:y;default:0"`
}

// Table is a physical table on the floor plan. CurrentGuestID is set exactly
// when Status is occupied.
type Table struct {
	ID               string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	TableNumber      string     `json:"tableNumber" gorm:"type:varchar(50);uniqueIndex;not null"`
	Seats            int        `json:"seats" gorm:"not null"`
	Status           string     `json:"status" gorm:"type:varchar(20);not null;default:'free';index:idx_table_status_zone"`
	Zone             string     `json:"zone" gorm:"type:varchar(100);not null;default:'main';index:idx_table_status_zone"`
	Position         Position   `json:"position" gorm:"embedded;embeddedPrefix:position_"`
	Shape            string     `json:"shape" gorm:"type:varchar(20);not null;default:'square'"`
	CurrentGuestID   *string    `json:"currentGuest" gorm:"type:varchar(36)"`
	AssignedWaiterID *string    `json:"assignedWaiter" gorm:"type:varchar(36)"`
	OccupiedAt       *time.Time `json:"occupiedAt"`
	IsActive         bool       `json:"isActive" gorm:"not null;default:true"`
	Version          int64      `json:"version" gorm:"not null;default:0"`
	CreatedAt        time.Time  `json:"createdAt" gorm:"not null"`
	UpdatedAt        time.Time  `json:"updatedAt" gorm:"not null"`
}

func (t *Table) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	return nil
}

// NewID returns a time ordered identifier, so ID order follows insertion order.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
