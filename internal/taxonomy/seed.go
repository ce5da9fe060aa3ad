package taxonomy

// Exam IDs supported out of the box.
const (
	ExamJEEMain  ExamID = "jee-main"
	ExamNEET     ExamID = "neet"
	ExamBoards10 ExamID = "boards-10"
)

// Default returns the built-in catalog. Panics on an invalid seed, which is
// a programming error, not a runtime condition.
func Default() *Catalog {
	c, err := NewCatalog(seedNodes)
	if err != nil {
		panic(err)
	}
	return c
}

var seedNodes = []Node{
	// JEE Main - Mathematics
	{Exam: ExamJEEMain, Topic: "quadratic-equations", TopicName: "Quadratic Equations", Subtopic: "nature-of-roots", Subject: "Mathematics", ClassLevel: 11},
	{Exam: ExamJEEMain, Topic: "quadratic-equations", TopicName: "Quadratic Equations", Subtopic: "sum-product-of-roots", Subject: "Mathematics", ClassLevel: 11},
	{Exam: ExamJEEMain, Topic: "sequences-series", TopicName: "Sequences and Series", Subtopic: "arithmetic-progression", Subject: "Mathematics", ClassLevel: 11},
	{Exam: ExamJEEMain, Topic: "sequences-series", TopicName: "Sequences and Series", Subtopic: "geometric-progression", Subject: "Mathematics", ClassLevel: 11},
	{Exam: ExamJEEMain, Topic: "definite-integration", TopicName: "Definite Integration", Subtopic: "properties-of-definite-integrals", Subject: "Mathematics", ClassLevel: 12},
	{Exam: ExamJEEMain, Topic: "definite-integration", TopicName: "Definite Integration", Subtopic: "area-under-curves", Subject: "Mathematics", ClassLevel: 12},
	{Exam: ExamJEEMain, Topic: "probability", TopicName: "Probability", Subtopic: "conditional-probability", Subject: "Mathematics", ClassLevel: 12},
	{Exam: ExamJEEMain, Topic: "probability", TopicName: "Probability", Subtopic: "bayes-theorem", Subject: "Mathematics", ClassLevel: 12},

	// JEE Main - Physics
	{Exam: ExamJEEMain, Topic: "kinematics", TopicName: "Kinematics", Subtopic: "projectile-motion", Subject: "Physics", ClassLevel: 11},
	{Exam: ExamJEEMain, Topic: "kinematics", TopicName: "Kinematics", Subtopic: "relative-velocity", Subject: "Physics", ClassLevel: 11},
	{Exam: ExamJEEMain, Topic: "current-electricity", TopicName: "Current Electricity", Subtopic: "kirchhoff-laws", Subject: "Physics", ClassLevel: 12},
	{Exam: ExamJEEMain, Topic: "current-electricity", TopicName: "Current Electricity", Subtopic: "wheatstone-bridge", Subject: "Physics", ClassLevel: 12},

	// NEET - Biology
	{Exam: ExamNEET, Topic: "cell-structure", TopicName: "Cell Structure and Function", Subtopic: "cell-organelles", Subject: "Biology", ClassLevel: 11},
	{Exam: ExamNEET, Topic: "cell-structure", TopicName: "Cell Structure and Function", Subtopic: "cell-division", Subject: "Biology", ClassLevel: 11},
	{Exam: ExamNEET, Topic: "genetics", TopicName: "Genetics and Evolution", Subtopic: "mendelian-inheritance", Subject: "Biology", ClassLevel: 12},
	{Exam: ExamNEET, Topic: "genetics", TopicName: "Genetics and Evolution", Subtopic: "molecular-basis-of-inheritance", Subject: "Biology", ClassLevel: 12},

	// NEET - Chemistry
	{Exam: ExamNEET, Topic: "chemical-bonding", TopicName: "Chemical Bonding", Subtopic: "vsepr-theory", Subject: "Chemistry", ClassLevel: 11},
	{Exam: ExamNEET, Topic: "chemical-bonding", TopicName: "Chemical Bonding", Subtopic: "hybridisation", Subject: "Chemistry", ClassLevel: 11},
	{Exam: ExamNEET, Topic: "equilibrium", TopicName: "Equilibrium", Subtopic: "ionic-equilibrium", Subject: "Chemistry", ClassLevel: 11},
	{Exam: ExamNEET, Topic: "equilibrium", TopicName: "Equilibrium", Subtopic: "buffer-solutions", Subject: "Chemistry", ClassLevel: 11},

	// Class 10 boards
	{Exam: ExamBoards10, Topic: "triangles", TopicName: "Triangles", Subtopic: "similarity-criteria", Subject: "Mathematics", ClassLevel: 10},
	{Exam: ExamBoards10, Topic: "triangles", TopicName: "Triangles", Subtopic: "pythagoras-theorem", Subject: "Mathematics", ClassLevel: 10},
	{Exam: ExamBoards10, Topic: "light", TopicName: "Light: Reflection and Refraction", Subtopic: "lens-formula", Subject: "Science", ClassLevel: 10},
	{Exam: ExamBoards10, Topic: "light", TopicName: "Light: Reflection and Refraction", Subtopic: "mirror-formula", Subject: "Science", ClassLevel: 10},
}
