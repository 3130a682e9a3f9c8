package core

import (
	"famtree/pkg/family"
)

// OnboardingForm is the data collected by the first-run wizard.
type OnboardingForm struct {
	FirstName  string
	LastName   string
	Gender     family.Gender
	FatherName string
	MotherName string
}

// Wizard step bounds.
const (
	FirstOnboardingStep = 1
	LastOnboardingStep  = 3
)

// Onboarding walks through the three wizard steps and builds the starting
// tree once the last step is confirmed.
type Onboarding struct {
	Step int
	Form OnboardingForm
}

// NewOnboarding starts the wizard on step one.
func NewOnboarding() *Onboarding {
	return &Onboarding{Step: FirstOnboardingStep, Form: OnboardingForm{Gender: family.Male}}
}

// Back moves one step back, never below the first step.
func (o *Onboarding) Back() {
	if o.Step > FirstOnboardingStep {
		o.Step--
	}
}

// Skip jumps to the confirmation step.
func (o *Onboarding) Skip() { o.Step = LastOnboardingStep }

// Next advances the wizard. On the last step it returns the finished tree
// built from root and done is true.
func (o *Onboarding) Next(root family.Node) (tree family.Tree, done bool) {
	if o.Step < LastOnboardingStep {
		o.Step++
		return family.Tree{}, false
	}
	return BuildOnboardingTree(root, o.Form), true
}

// Fixed ids and positions of the parents created by the wizard.
const (
	FatherID = "father"
	MotherID = "mother"
)

// BuildOnboardingTree fills root from the form and adds the named parents.
// Both parents present are linked as spouses.
func BuildOnboardingTree(root family.Node, form OnboardingForm) family.Tree {
	root.FirstName = form.FirstName
	root.LastName = form.LastName
	if form.Gender.Valid() {
		root.Gender = form.Gender
	}
	tree := family.Tree{Nodes: []family.Node{root}, Edges: []family.Edge{}}

	if form.FatherName != "" {
		tree.Nodes = append(tree.Nodes, family.Node{
			ID:        FatherID,
			X:         250,
			Y:         150,
			FirstName: form.FatherName,
			LastName:  form.LastName,
			Gender:    family.Male,
			IsAlive:   true,
			Relation:  family.RelationParent,
		})
		tree.Edges = append(tree.Edges, family.Edge{ID: "e1", Source: FatherID, Target: root.ID})
	}
	if form.MotherName != "" {
		tree.Nodes = append(tree.Nodes, family.Node{
			ID:        MotherID,
			X:         550,
			Y:         150,
			FirstName: form.MotherName,
			Gender:    family.Female,
			IsAlive:   true,
			Relation:  family.RelationParent,
		})
		tree.Edges = append(tree.Edges, family.Edge{ID: "e2", Source: MotherID, Target: root.ID})
	}
	if form.FatherName != "" && form.MotherName != "" {
		tree.Edges = append(tree.Edges, family.Edge{ID: "e3", Source: FatherID, Target: MotherID, Type: family.EdgeSpouse})
	}
	return tree
}
