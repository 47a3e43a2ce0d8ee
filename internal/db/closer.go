package db

import (
	"log"

	"gorm.io/gorm"
)

// RoundCloser flips a round from active to scoreboard and reports whether
// this call performed the flip. Losing the race is not an error.
type RoundCloser interface {
	CloseRound(roundID uint) (bool, error)
}

// procCloser calls the close_round Postgres function installed by the SQL
// migrations. The function flips status active -> scoreboard in a single
// statement and returns whether the row changed.
type procCloser struct {
	conn *gorm.DB
}

func (c *procCloser) CloseRound(roundID uint) (bool, error) {
	var closed bool
	err := c.conn.Raw("SELECT close_round(?)", roundID).Scan(&closed).Error
	if err != nil {
		return false, err
	}
	return closed, nil
}

// conditionalCloser is the optimistic fallback: a conditional update where
// zero rows affected means someone else already closed the round.
type conditionalCloser struct {
	conn *gorm.DB
}

func (c *conditionalCloser) CloseRound(roundID uint) (bool, error) {
	result := c.conn.Model(&Round{}).
		Where("id = ? AND status = ?", roundID, "active").
		Update("status", "scoreboard")
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DetectRoundCloser prefers the close_round stored function when the
// database has it, and degrades to the conditional update otherwise.
func DetectRoundCloser(conn *gorm.DB) RoundCloser {
	if conn == nil {
		return nil
	}
	var count int64
	err := conn.Raw("SELECT count(*) FROM pg_proc WHERE proname = 'close_round'").Scan(&count).Error
	if err == nil && count > 0 {
		return &procCloser{conn: conn}
	}
	if err != nil {
		log.Printf("round closer capability check failed, using conditional update error=%v", err)
	}
	return &conditionalCloser{conn: conn}
}

// IncrementScore adds delta to a participant's total score in one statement.
func IncrementScore(conn *gorm.DB, participantID uint, delta int) error {
	return conn.Model(&Participant{}).
		Where("id = ?", participantID).
		Update("total_score", gorm.Expr("total_score + ?", delta)).Error
}
