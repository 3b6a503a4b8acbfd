package analysis

// Category labels the quality of a played move.
type Category string

const (
	CategoryCheckmate  Category = "checkmate"
	CategoryBest       Category = "bestMove"
	CategoryGreat      Category = "greatMove"
	CategoryExcellent  Category = "excellent"
	CategoryGood       Category = "good"
	CategoryBook       Category = "book"
	CategoryInaccuracy Category = "inaccuracy"
	CategoryMistake    Category = "mistake"
	CategoryMiss       Category = "miss"
	CategoryBlunder    Category = "blunder"
	CategoryNeutral    Category = "neutral"
)

// Classify maps a move to its category. First matching rule wins: a played
// move equal to the engine best move is always bestMove, otherwise the
// category is a function of eval, the engine evaluation of the position after
// the played move in pawns from the mover's perspective.
//
// Checkmating moves never reach the classifier; they are labeled
// CategoryCheckmate before any engine call.
func Classify(played, best string, eval float64) Category {
	switch {
	case played != "" && played == best:
		return CategoryBest
	case eval >= 1.5:
		return CategoryGreat
	case eval >= 1.0:
		return CategoryExcellent
	case eval >= 0.5:
		return CategoryGood
	case eval == 0:
		return CategoryBook
	case eval > -1.0 && eval <= -0.5:
		return CategoryInaccuracy
	case eval > -2.0 && eval <= -1.0:
		return CategoryMistake
	case eval > -3.0 && eval <= -2.0:
		return CategoryMiss
	case eval <= -3.0:
		return CategoryBlunder
	default:
		return CategoryNeutral
	}
}
