package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCampaignCode_NumericProjectHead(t *testing.T) {
	code := "pk|40109|SDH_pk_th-single-detached-house-centro-ratchapruek-3_none_Traffic_Responsive_GDNQ2Y25_[ST]|2089P22"

	attr := ParseCampaignCode(code)

	require.NotNil(t, attr)
	assert.Equal(t, "pk", attr.Agency)
	assert.Equal(t, "40109", attr.ProjectID)
	assert.Equal(t, "Traffic", attr.Objective)
	assert.Equal(t, "2089P22", attr.CampaignID)
	assert.NotEmpty(t, attr.ProjectName)
	assert.Contains(t, attr.ProjectName, "centro-ratchapruek")
	assert.Equal(t, "Q2Y25", attr.Period)
	assert.Greater(t, attr.Confidence, 0.9)
}

func TestParseCampaignCode_RepeatedProjectToken(t *testing.T) {
	code := "pk|CD_pk_60029|CD_pk_th-condominium-rhythm-ekkamai-estate_none_Traffic_tiktok_VDO_TTQ2Y25-JUN25-APCD-NO2_[ST]|1972P04"

	attr := ParseCampaignCode(code)

	require.NotNil(t, attr)
	assert.Equal(t, "60029", attr.ProjectID)
	assert.Equal(t, "Traffic", attr.Objective)
	assert.Equal(t, "1972P04", attr.CampaignID)
	assert.Contains(t, attr.ProjectName, "condominium-rhythm-ekkamai")
}

func TestParseCampaignCode_EmbeddedProjectID(t *testing.T) {
	code := "pk|SDH_pk_40065_th-single-detached-house-centro-vibhavadi_none_View_tiktok_Boostpost_FBViewY25-JUN25-SDH-31_[ST]|1359G01"

	attr := ParseCampaignCode(code)

	require.NotNil(t, attr)
	assert.Equal(t, "40065", attr.ProjectID)
	assert.Equal(t, "View", attr.Objective)
	assert.Equal(t, "JUN25", attr.Period)
	assert.Equal(t, "1359G01", attr.CampaignID)
}

func TestParseCampaignCode_OnlineMKT(t *testing.T) {
	code := "pk|OnlineMKT_pk_AP-PawLiving-Content_none_Engagement_tiktok_Boostpost_TT-Paw-Post2-Jun_[ST]|1951A02"

	attr := ParseCampaignCode(code)

	require.NotNil(t, attr)
	assert.Equal(t, "OnlineMKT", attr.ProjectID)
	assert.Equal(t, "Online Marketing", attr.ProjectName)
	assert.Equal(t, "Engagement", attr.Objective)
	assert.Equal(t, "1951A02", attr.CampaignID)
}

func TestParseCampaignCode_Corporate(t *testing.T) {
	attr := ParseCampaignCode("pk|Corporate_pk_Corporate_none_Awareness_Q3Y25_[ST]|1100C01")

	require.NotNil(t, attr)
	assert.Equal(t, "Corporate", attr.ProjectID)
	assert.Equal(t, "Corporate", attr.ProjectName)
	assert.Equal(t, "Awareness", attr.Objective)
	assert.Equal(t, "Q3Y25", attr.Period)
}

func TestParseCampaignCode_PlatformLabelAndWrappedID(t *testing.T) {
	// Line joining leaves the platform label in front and a space before
	// the wrapped campaign id.
	code := "Instagram - pk|40110|CD_pk_th-life-bangna_none_Awareness_JUN25_ [ST]| 2089P23"

	attr := ParseCampaignCode(code)

	require.NotNil(t, attr)
	assert.Equal(t, "40110", attr.ProjectID)
	assert.Equal(t, "2089P23", attr.CampaignID)
}

func TestParseCampaignCode_NoMarkerReturnsNil(t *testing.T) {
	assert.Nil(t, ParseCampaignCode("pk|40109|SDH_pk_th-centro_none_Traffic_Q2Y25"))
	assert.Nil(t, ParseCampaignCode("Generic boost charge 1,200.00"))
	assert.Nil(t, ParseCampaignCode(""))
}

func TestParseCampaignCode_AbsentFieldsStayEmpty(t *testing.T) {
	attr := ParseCampaignCode("pk|40109|_[ST]|2089P22")

	require.NotNil(t, attr)
	assert.Equal(t, "40109", attr.ProjectID)
	assert.Empty(t, attr.Objective)
	assert.Empty(t, attr.Period)
	assert.Empty(t, attr.ProjectName)
	assert.Less(t, attr.Confidence, 0.7)
}

func TestParseCampaignCode_VDOIsView(t *testing.T) {
	attr := ParseCampaignCode("pk|40044|SDH_pk_th-moden-bangna_none_VDO_Q2Y25_[ST]|2044P01")

	require.NotNil(t, attr)
	assert.Equal(t, "View", attr.Objective)
}

func TestScoreConfidence_Weights(t *testing.T) {
	full := &CampaignAttribution{
		ProjectID: "40109", ProjectName: "centro", Objective: "Traffic",
		Period: "Q2Y25", CampaignID: "2089P22",
	}
	assert.InDelta(t, 1.0, scoreConfidence(full), 1e-9)

	idOnly := &CampaignAttribution{CampaignID: "2089P22"}
	assert.InDelta(t, 0.30, scoreConfidence(idOnly), 1e-9)
}
