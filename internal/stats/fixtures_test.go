package stats

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"

	"guild-tracker/internal/domain"
)

// testDataGenerator produces randomized but reproducible roster fixtures.
// Every test that relies on generated data seeds it explicitly so a failure
// reproduces from the test source alone.
type testDataGenerator struct {
	faker *gofakeit.Faker
}

func newTestDataGenerator(seed uint64) *testDataGenerator {
	return &testDataGenerator{faker: gofakeit.New(seed)}
}

var (
	testDungeons = []string{"Ara-Kara", "City of Threads", "The Dawnbreaker", "Mists of Tirna Scithe"}
	testAffixes  = []string{"Fortified", "Tyrannical", "Xal'atath's Bargain"}
	testSpecs    = []string{"Protection", "Restoration", "Frost", "Shadow", "Havoc"}
	testClasses  = []string{"Warrior", "Druid", "Mage", "Priest", "Demon Hunter"}
)

func (g *testDataGenerator) character(name string, runCount int) domain.Character {
	ch := domain.Character{
		Name:            name,
		Realm:           "proudmoore",
		Class:           testClasses[g.faker.Number(0, len(testClasses)-1)],
		ActiveSpec:      testSpecs[g.faker.Number(0, len(testSpecs)-1)],
		Level:           80,
		MythicPlusScore: g.faker.Float64Range(500, 3500),
		CurrentSeason:   &domain.SeasonSnapshot{Season: 14},
	}
	for i := 0; i < runCount; i++ {
		ch.CurrentSeason.BestRuns = append(ch.CurrentSeason.BestRuns, g.run())
	}
	return ch
}

func (g *testDataGenerator) run() domain.MythicPlusRun {
	r := domain.MythicPlusRun{
		KeystoneLevel:         g.faker.Number(2, 20),
		IsCompletedWithinTime: g.faker.Bool(),
		MythicRating:          &domain.RunRating{Rating: g.faker.Float64Range(100, 400)},
		DurationSeconds:       g.faker.Float64Range(900, 2400),
		Dungeon:               &domain.DungeonRef{Name: testDungeons[g.faker.Number(0, len(testDungeons)-1)]},
		KeystoneAffixes: []domain.RunAffix{
			{Name: testAffixes[g.faker.Number(0, len(testAffixes)-1)]},
		},
	}
	party := g.faker.Number(1, 4)
	for i := 0; i < party; i++ {
		r.Members = append(r.Members, domain.RunMember{
			Name:  fmt.Sprintf("Mate%d", g.faker.Number(1, 30)),
			Realm: "proudmoore",
			Spec:  testSpecs[g.faker.Number(0, len(testSpecs)-1)],
		})
	}
	return r
}

// Hand-built fixtures for the cases where exact numbers matter.

func timedRun(level int, rating float64, dungeon string) domain.MythicPlusRun {
	return buildRun(level, true, rating, dungeon)
}

func untimedRun(level int, rating float64, dungeon string) domain.MythicPlusRun {
	return buildRun(level, false, rating, dungeon)
}

func buildRun(level int, timed bool, rating float64, dungeon string) domain.MythicPlusRun {
	return domain.MythicPlusRun{
		KeystoneLevel:         level,
		IsCompletedWithinTime: timed,
		MythicRating:          &domain.RunRating{Rating: rating},
		DurationSeconds:       1800,
		Dungeon:               &domain.DungeonRef{Name: dungeon},
	}
}

func withAffixes(r domain.MythicPlusRun, names ...string) domain.MythicPlusRun {
	for _, n := range names {
		r.KeystoneAffixes = append(r.KeystoneAffixes, domain.RunAffix{Name: n})
	}
	return r
}

func withMembers(r domain.MythicPlusRun, members ...domain.RunMember) domain.MythicPlusRun {
	r.Members = append(r.Members, members...)
	return r
}

func member(name, spec string) domain.RunMember {
	return domain.RunMember{Name: name, Realm: "proudmoore", Spec: spec}
}

func seasonCharacter(name string, runs ...domain.MythicPlusRun) domain.Character {
	return domain.Character{
		Name:          name,
		Realm:         "proudmoore",
		Class:         "Warrior",
		ActiveSpec:    "Protection",
		CurrentSeason: &domain.SeasonSnapshot{Season: 14, BestRuns: runs},
	}
}
