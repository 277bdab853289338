package classify

import "testing"

func TestClassify_TitleExplicitKY(t *testing.T) {
	c := New()
	result := c.Classify("Kentucky lawmakers pass new budget", "The state legislature voted today.")
	if result.RegionScope != RegionScopeKY {
		t.Fatalf("expected ky scope, got %s", result.RegionScope)
	}
}

func TestClassify_TitleUnambiguousCity(t *testing.T) {
	c := New()
	result := c.Classify("Bowling Green opens new park", "Residents celebrated the opening.")
	if result.RegionScope != RegionScopeKY {
		t.Fatalf("expected ky scope, got %s", result.RegionScope)
	}
	found := false
	for _, loc := range result.Locations {
		if loc.County == "Warren" {
			found = true
		}
	}
	if !found {
		t.Error("expected Warren county tag from Bowling Green mention")
	}
}

func TestClassify_AmbiguousCityWithoutSignal_Rejected(t *testing.T) {
	c := New()
	result := c.Classify("Lexington man wins award", "The ceremony was held downtown.")
	if result.RegionScope != RegionScopeNational {
		t.Fatalf("expected national scope, got %s", result.RegionScope)
	}
	if result.FailedTier != FailedTierAmbiguousNoKY {
		t.Errorf("expected ambiguous-no-signal failure tier, got %q", result.FailedTier)
	}
}

func TestClassify_AmbiguousCityWithKYSignal_Relevant(t *testing.T) {
	c := New()
	result := c.Classify("Lexington, Kentucky man wins award", "The ceremony was held downtown.")
	if result.RegionScope != RegionScopeKY {
		t.Fatalf("expected ky scope, got %s", result.RegionScope)
	}
}

func TestClassify_BodyMentionThreshold(t *testing.T) {
	c := New()
	body := "Frankfort officials met today. Later, Frankfort released a statement about the budget."
	result := c.Classify("State budget meeting recap", body)
	if result.RegionScope != RegionScopeKY {
		t.Fatalf("expected ky scope from two body mentions, got %s", result.RegionScope)
	}
}

func TestClassify_NoMentions_National(t *testing.T) {
	c := New()
	result := c.Classify("National weather service issues alert", "A storm system is moving east.")
	if result.RegionScope != RegionScopeNational {
		t.Fatalf("expected national scope, got %s", result.RegionScope)
	}
	if result.FailedTier != FailedTierNone {
		t.Errorf("expected no failed tier for plain non-KY article, got %q", result.FailedTier)
	}
}

func TestClassify_TitleCountySuffix_RelevantWithoutBodyCorroboration(t *testing.T) {
	c := New()
	result := c.Classify("Flood warning in Pike County", "Heavy rains across Kentucky.")
	if result.RegionScope != RegionScopeKY {
		t.Fatalf("expected ky scope from title county suffix, got %s", result.RegionScope)
	}

	wantCounties := map[string]bool{"Pike": false, "": false}
	for _, loc := range result.Locations {
		if loc.State != "KY" {
			t.Errorf("expected all locations to be state KY, got %+v", loc)
			continue
		}
		if _, ok := wantCounties[loc.County]; ok {
			wantCounties[loc.County] = true
		}
	}
	for county, found := range wantCounties {
		if !found {
			t.Errorf("expected a (KY, %q) location tag, got %+v", county, result.Locations)
		}
	}
}

func TestClassify_CountyPattern_RequiresCountySuffix(t *testing.T) {
	c := New()
	result := c.Classify("Kentucky news", "Fayette County commissioners approved the budget.")
	found := false
	for _, loc := range result.Locations {
		if loc.County == "Fayette" {
			found = true
		}
	}
	if !found {
		t.Error("expected Fayette county tag from 'Fayette County' mention")
	}
}
