package taxonomy

import (
	"fmt"
	"strings"
)

// ExamID identifies a target exam, e.g. "jee-main" or "neet".
type ExamID string

// TopicID identifies a topic within an exam.
type TopicID string

// SubtopicID identifies a subtopic within a topic.
type SubtopicID string

// Node is one leaf of the exam catalog: a subtopic with its full lineage
// and tags. Nodes are immutable after catalog construction.
type Node struct {
	Exam       ExamID
	Topic      TopicID
	TopicName  string
	Subtopic   SubtopicID
	Subject    string
	ClassLevel int
}

// Catalog holds the static exam/topic/subtopic hierarchy with precomputed
// indices. Built once at process start; safe for concurrent reads.
type Catalog struct {
	nodes    []Node
	byExam   map[ExamID][]Node
	byTopic  map[ExamID]map[TopicID][]Node
	topicSet map[ExamID]map[TopicID]string
}

// NewCatalog builds a catalog from the given nodes and validates the
// hierarchy invariants. Returns an error describing every violation found.
func NewCatalog(nodes []Node) (*Catalog, error) {
	if err := validateNodes(nodes); err != nil {
		return nil, err
	}

	c := &Catalog{
		nodes:    nodes,
		byExam:   make(map[ExamID][]Node),
		byTopic:  make(map[ExamID]map[TopicID][]Node),
		topicSet: make(map[ExamID]map[TopicID]string),
	}
	for _, n := range nodes {
		c.byExam[n.Exam] = append(c.byExam[n.Exam], n)
		if c.byTopic[n.Exam] == nil {
			c.byTopic[n.Exam] = make(map[TopicID][]Node)
			c.topicSet[n.Exam] = make(map[TopicID]string)
		}
		c.byTopic[n.Exam][n.Topic] = append(c.byTopic[n.Exam][n.Topic], n)
		c.topicSet[n.Exam][n.Topic] = n.TopicName
	}
	return c, nil
}

// Exams returns all exam IDs in the catalog, in insertion order.
func (c *Catalog) Exams() []ExamID {
	var out []ExamID
	seen := make(map[ExamID]bool)
	for _, n := range c.nodes {
		if !seen[n.Exam] {
			seen[n.Exam] = true
			out = append(out, n.Exam)
		}
	}
	return out
}

// TopicsForExam returns the topic IDs under an exam.
func (c *Catalog) TopicsForExam(exam ExamID) []TopicID {
	var out []TopicID
	seen := make(map[TopicID]bool)
	for _, n := range c.byExam[exam] {
		if !seen[n.Topic] {
			seen[n.Topic] = true
			out = append(out, n.Topic)
		}
	}
	return out
}

// Subtopics returns the nodes under (exam, topic).
func (c *Catalog) Subtopics(exam ExamID, topic TopicID) []Node {
	return c.byTopic[exam][topic]
}

// TopicName returns the display name for a topic, or ("", false).
func (c *Catalog) TopicName(exam ExamID, topic TopicID) (string, bool) {
	name, ok := c.topicSet[exam][topic]
	return name, ok
}

// Lookup returns the node for (exam, topic, subtopic), or (Node{}, false).
func (c *Catalog) Lookup(exam ExamID, topic TopicID, subtopic SubtopicID) (Node, bool) {
	for _, n := range c.byTopic[exam][topic] {
		if n.Subtopic == subtopic {
			return n, true
		}
	}
	return Node{}, false
}

// validateNodes performs all structural checks on the node set.
func validateNodes(nodes []Node) error {
	var errs []string

	if len(nodes) == 0 {
		errs = append(errs, "catalog has no nodes")
	}

	// TopicID unique within an ExamID: a topic may span many subtopic rows,
	// but its name must be consistent and it must not belong to two subjects.
	topicName := make(map[string]string)
	topicSubject := make(map[string]string)
	subSeen := make(map[string]bool)

	for _, n := range nodes {
		if n.Exam == "" || n.Topic == "" || n.Subtopic == "" {
			errs = append(errs, fmt.Sprintf("node %+v has empty identifier", n))
			continue
		}
		tk := string(n.Exam) + "/" + string(n.Topic)
		if name, ok := topicName[tk]; ok && name != n.TopicName {
			errs = append(errs, fmt.Sprintf("topic %q has conflicting names %q and %q", tk, name, n.TopicName))
		}
		topicName[tk] = n.TopicName
		if subj, ok := topicSubject[tk]; ok && subj != n.Subject {
			errs = append(errs, fmt.Sprintf("topic %q spans subjects %q and %q", tk, subj, n.Subject))
		}
		topicSubject[tk] = n.Subject

		// SubtopicID unique within a TopicID.
		sk := tk + "/" + string(n.Subtopic)
		if subSeen[sk] {
			errs = append(errs, fmt.Sprintf("duplicate subtopic %q", sk))
		}
		subSeen[sk] = true

		if n.ClassLevel < 6 || n.ClassLevel > 12 {
			errs = append(errs, fmt.Sprintf("node %q: class level %d out of range", sk, n.ClassLevel))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("taxonomy validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
